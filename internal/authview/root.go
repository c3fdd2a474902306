package authview

import (
	"context"
	"fmt"
	"net"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"authview/bridge"
)

var (
	flagConfigPath string
	flagRoute      string
	flagAPIURL     string
	flagHostSocket string

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo sets build metadata from ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
}

var rootCmd = &cobra.Command{
	Use:   "authview",
	Short: "Terminal front end for email signup, login and account screens",
	Long: `authview renders the signup, login, password reset, change password
and delete account screens of an identity API as a Bubble Tea TUI.
A native host can attach over a socket to receive tokens and take back
control; without one the screens run in browser mode.`,
	RunE: runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("authview %s\n  commit: %s\n  built:  %s\n", buildVersion, buildCommit, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to config file (default: ~/.authview/config.yaml)")
	rootCmd.Flags().StringVar(&flagRoute, "route", "", "Start route, e.g. /auth/email-login or /auth/email-signup/verify?email=a@b.com")
	rootCmd.Flags().StringVar(&flagAPIURL, "api-url", "", "Identity API base URL (overrides config)")
	rootCmd.Flags().StringVar(&flagHostSocket, "host-socket", "", "Unix socket path native hosts attach to (overrides config)")

	rootCmd.AddCommand(versionCmd)

	initSubcommands(rootCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// resolveConfigPath returns the --config value or the default path.
func resolveConfigPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}
	return ConfigPath()
}

func runTUI(cmd *cobra.Command, args []string) error {
	lockPath := PIDLockPath()
	if err := AcquirePIDLock(lockPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return nil
	}
	defer ReleasePIDLock(lockPath)

	cfgPath := resolveConfigPath()
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// First-run setup wizard, unless the API URL came from the environment
	// or a flag.
	if !ConfigFileExists(cfgPath) && cfg.APIURL == "" && flagAPIURL == "" {
		setup := NewSetupModel(cfg, cfgPath)
		result, err := tea.NewProgram(setup, tea.WithAltScreen()).Run()
		if err != nil {
			return fmt.Errorf("setup wizard: %w", err)
		}
		if s, ok := result.(SetupModel); ok && s.Done() {
			cfg = s.Config()
		}
	}

	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
	}
	if flagHostSocket != "" {
		cfg.HostSocket = flagHostSocket
	}
	if flagRoute != "" {
		cfg.StartRoute = flagRoute
	}

	start, err := ParseRoute(cfg.StartRoute)
	if err != nil {
		return err
	}

	logger := NewLogger().SetLevel(ParseLogLevel(cfg.LogLevel))
	defer logger.Close()
	logger.Info("authview %s starting at %s (api: %q)", buildVersion, start, cfg.APIURL)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Alerts raised while no host is attached are shown as popups.
	alerts := make(chan string, 8)
	gateway := bridge.New(bridge.NewSlot(),
		bridge.WithLogger(logger),
		bridge.WithTimeouts(cfg.AcquireTimeout(), cfg.BackTimeout()),
		bridge.WithDedupWindow(cfg.DedupWindow()),
		bridge.WithAlert(func(msg string) {
			select {
			case alerts <- msg:
			default:
				logger.Warn("alert dropped: %s", msg)
			}
		}),
	)

	if cfg.HostSocket != "" {
		ln, err := listenHostSocket(cfg.HostSocket)
		if err != nil {
			return err
		}
		go func() {
			if err := bridge.ServeHosts(ctx, ln, gateway.Slot(), logger, cfg.CallTimeout()); err != nil {
				logger.Error("host socket: %v", err)
			}
		}()
		defer os.Remove(cfg.HostSocket)
	}

	deps := &Deps{
		Client:  NewClient(cfg.APIURL, cfg.RequestTimeout(), logger),
		Gateway: gateway,
		Logger:  logger,
	}

	model := NewModel(ctx, deps, start, alerts).
		WithHealth(NewHealthMonitor(cfg.APIURL, cfg.Health, logger))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		logger.Error("TUI fatal: %v", err)
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return err
	}
	if m, ok := final.(Model); ok {
		logger.Info("authview exiting at %s", m.Route())
	}
	return nil
}

// listenHostSocket listens on a Unix socket at path, removing a stale socket
// file left by an earlier run.
func listenHostSocket(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return nil, fmt.Errorf("host socket %s is in use", path)
		}
		_ = os.Remove(path)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on host socket: %w", err)
	}
	return ln, nil
}
