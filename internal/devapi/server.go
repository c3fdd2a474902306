package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"authview/requestid"
)

// Endpoints served by the dev API.
const (
	PathLogin             = "/api/v1/auth/login"
	PathSignupOTP         = "/api/v1/auth/otp"
	PathSignupOTPVerify   = "/api/v1/auth/otp/verify"
	PathSetPassword       = "/api/v1/auth/password"
	PathSocialSetPassword = "/api/v1/auth/social/password/set"
	PathValidatePassword  = "/api/v1/auth/validate-password"
	PathAccount           = "/api/v1/auth/account"
	PathChangePassword    = "/api/v1/users/password"
	PathResetRequest      = "/api/v1/users/password/reset"
	PathResetVerify       = "/api/v1/users/password/reset/verify"
	PathResetConfirm      = "/api/v1/users/password/reset/confirm"
	PathHealth            = "/health"
)

// Logger is the logging surface of the server.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Server is the dev identity API.
type Server struct {
	store  *Store
	tokens *Issuer
	logger Logger
	router *mux.Router
}

// NewServer builds the router over store and tokens.
func NewServer(store *Store, tokens *Issuer, logger Logger) *Server {
	if logger == nil {
		logger = nopLogger{}
	}
	s := &Server{store: store, tokens: tokens, logger: logger}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withRequestID, s.withLogging)

	r.HandleFunc(PathHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET", "HEAD")

	r.HandleFunc(PathLogin, s.handleLogin).Methods("POST")
	r.HandleFunc(PathSignupOTP, s.handleSignupOTP).Methods("POST")
	r.HandleFunc(PathSignupOTPVerify, s.handleSignupVerify).Methods("POST")
	r.HandleFunc(PathSetPassword, s.handleSetPassword).Methods("POST")
	r.HandleFunc(PathSocialSetPassword, s.handleSocialSetPassword).Methods("POST")
	r.HandleFunc(PathResetRequest, s.handleResetRequest).Methods("POST")
	r.HandleFunc(PathResetVerify, s.handleResetVerify).Methods("POST")
	r.HandleFunc(PathResetConfirm, s.handleResetConfirm).Methods("POST")

	r.Handle(PathValidatePassword, s.authenticated(s.handleValidatePassword)).Methods("POST")
	r.Handle(PathAccount, s.authenticated(s.handleDeleteAccount)).Methods("DELETE")
	r.Handle(PathChangePassword, s.authenticated(s.handleChangePassword)).Methods("PUT")
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dev-api: listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- middleware ---

type claimsKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := requestid.FromRequest(r)
		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(requestid.WithContext(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("dev-api: %s %s [%s] -> %d in %s", r.Method, r.URL.Path,
			requestid.FromContext(r.Context()), rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// authenticated requires a valid Bearer access token and stores its claims
// in the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.logger.Warn("dev-api: %v", err)
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func claimsFrom(r *http.Request) *Claims {
	c, _ := r.Context().Value(claimsKey{}).(*Claims)
	return c
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// --- request bodies ---

type emailBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IDToken  string `json:"id_token"`
}

type passwordBody struct {
	Password string `json:"password"`
}

type changePasswordBody struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// --- handlers ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decode(w, r, &body) {
		return
	}
	u, err := s.store.Authenticate(body.Email, body.Password)
	if err != nil {
		writeAuth0(w, http.StatusUnauthorized, "Wrong email or password.")
		return
	}
	s.writeToken(w, u)
}

func (s *Server) handleSignupOTP(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		writeMessage(w, http.StatusBadRequest, "Email is required")
		return
	}
	if _, exists := s.store.Lookup(body.Email); exists {
		writeMessage(w, http.StatusConflict, "An account with this email already exists")
		return
	}
	code, err := s.store.IssueCode(body.Email, PurposeSignup)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.logger.Info("dev-api: signup code for %s: %s", body.Email, code)
	writeMessage(w, http.StatusOK, "Verification code sent")
}

func (s *Server) handleSignupVerify(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if !decode(w, r, &body) {
		return
	}
	if err := s.store.VerifyCode(body.Email, PurposeSignup, body.OTP); err != nil {
		writeAuth0(w, http.StatusBadRequest, "Wrong email or verification code.")
		return
	}
	writeMessage(w, http.StatusOK, "Email verified")
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decode(w, r, &body) {
		return
	}
	u, err := s.store.Register(body.Email, body.Password)
	if err != nil {
		s.registerError(w, err)
		return
	}
	s.logger.Info("dev-api: registered %s (%s)", u.Email, u.ID)
	s.writeToken(w, u)
}

func (s *Server) handleSocialSetPassword(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decode(w, r, &body) {
		return
	}
	if body.IDToken == "" || bearerToken(r) != body.IDToken {
		writeMessage(w, http.StatusUnauthorized, "ID token does not match the bearer token")
		return
	}
	u, err := s.store.RegisterSocial(body.Email, body.Password)
	if err != nil {
		s.registerError(w, err)
		return
	}
	s.logger.Info("dev-api: registered social account %s (%s)", u.Email, u.ID)
	s.writeToken(w, u)
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if !decode(w, r, &body) {
		return
	}
	// Unknown emails get the same answer.
	if _, exists := s.store.Lookup(body.Email); exists {
		code, err := s.store.IssueCode(body.Email, PurposeReset)
		if err != nil {
			s.internalError(w, err)
			return
		}
		s.logger.Info("dev-api: reset code for %s: %s", body.Email, code)
	}
	writeMessage(w, http.StatusOK, "If the account exists, a reset code was sent")
}

func (s *Server) handleResetVerify(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if !decode(w, r, &body) {
		return
	}
	if err := s.store.VerifyCode(body.Email, PurposeReset, body.OTP); err != nil {
		writeAuth0(w, http.StatusBadRequest, "Invalid or expired reset code.")
		return
	}
	writeMessage(w, http.StatusOK, "Code verified")
}

func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decode(w, r, &body) {
		return
	}
	switch err := s.store.ResetPassword(body.Email, body.Password); {
	case err == nil:
		writeMessage(w, http.StatusOK, "Password updated")
	case errors.Is(err, ErrNotVerified), errors.Is(err, ErrUserNotFound):
		writeMessage(w, http.StatusBadRequest, "Reset code has not been verified")
	default:
		s.internalError(w, err)
	}
}

func (s *Server) handleValidatePassword(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if !decode(w, r, &body) {
		return
	}
	_, err := s.store.Authenticate(claimsFrom(r).Email, body.Password)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": err == nil})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if !decode(w, r, &body) {
		return
	}
	email := claimsFrom(r).Email
	if _, err := s.store.Authenticate(email, body.Password); err != nil {
		writeMessage(w, http.StatusForbidden, "Invalid password")
		return
	}
	if err := s.store.Delete(email); err != nil {
		writeMessage(w, http.StatusNotFound, "Account not found")
		return
	}
	s.logger.Info("dev-api: deleted %s", email)
	writeMessage(w, http.StatusOK, "Account deleted")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body changePasswordBody
	if !decode(w, r, &body) {
		return
	}
	email := claimsFrom(r).Email
	if _, err := s.store.Authenticate(email, body.OldPassword); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Current password is incorrect"})
		return
	}
	if err := s.store.SetPassword(email, body.NewPassword); err != nil {
		s.internalError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed")
}

// --- helpers ---

func (s *Server) registerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserExists):
		writeMessage(w, http.StatusConflict, "An account with this email already exists")
	case errors.Is(err, ErrNotVerified):
		writeMessage(w, http.StatusBadRequest, "Email has not been verified")
	default:
		s.internalError(w, err)
	}
}

func (s *Server) writeToken(w http.ResponseWriter, u *User) {
	tok, err := s.tokens.Issue(u)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenBody{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   s.tokens.TTLSeconds(),
	})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("dev-api: %v", err)
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeAuth0(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]map[string]string{"auth0_error": {"message": msg}})
}
