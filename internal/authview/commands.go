package authview

import (
	"fmt"
	"io"
	"net"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"authview/bridge"
	"authview/internal/devapi"
)

// initSubcommands registers all CLI subcommands on the root command.
func initSubcommands(root *cobra.Command) {
	root.AddCommand(routesCmd())
	root.AddCommand(configCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(devAPICmd())
	root.AddCommand(devHostCmd())
}

// --- routes ---

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the screens and their routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoutes(cmd.OutOrStdout())
		},
	}
}

func printRoutes(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUTE\tEMAIL\tDESCRIPTION")
	for _, s := range Screens() {
		email := "-"
		if s.NeedsEmail {
			email = "required"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Path, email, s.Description)
	}
	return w.Flush()
}

// --- config ---

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Re-run interactive configuration setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := LoadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setup := NewSetupModel(cfg, cfgPath)
			if _, err := tea.NewProgram(setup, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("setup wizard: %w", err)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-api-url <url>",
		Short: "Set the identity API base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := LoadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.APIURL = args[0]
			if err := SaveConfig(cfg, cfgPath); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API URL set to %s\n", cfg.APIURL)
			return nil
		},
	})

	return cmd
}

// --- check ---

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the identity API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := CheckServerReachable(cfg.APIURL); err != nil {
				return fmt.Errorf("%s", UserMessage(err, err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity API reachable at %s\n", cfg.APIURL)
			if pid, running := RunningPID(PIDLockPath()); running {
				fmt.Fprintf(cmd.OutOrStdout(), "authview TUI running (PID: %d)\n", pid)
			}
			return nil
		},
	}
}

// --- dev-api ---

func devAPICmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "dev-api",
		Short: "Serve an in-memory identity API for local development",
		Long: `dev-api serves every identity endpoint the screens call from memory.
Verification and reset codes are printed instead of emailed. Point the TUI at
it with --api-url http://<addr>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr == "" {
				addr = cfg.DevAPI.Addr
			}

			tokens, err := devapi.NewIssuer(cfg.DevAPI.SigningKey, time.Duration(cfg.DevAPI.TokenTTLMinutes)*time.Minute)
			if err != nil {
				return fmt.Errorf("dev-api: %w", err)
			}
			logger := NewLogger().SetLevel(ParseLogLevel(cfg.LogLevel)).Mirror(cmd.OutOrStdout())
			defer logger.Close()

			srv := devapi.NewServer(devapi.NewStore(), tokens, logger)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config dev_api.addr)")
	return cmd
}

// --- dev-host ---

func devHostCmd() *cobra.Command {
	var socket, network, accessToken, idToken string

	cmd := &cobra.Command{
		Use:   "dev-host",
		Short: "Attach to a running TUI as a development host",
		Long: `dev-host connects to the TUI's host socket, announces every host
capability, prints each callback it receives and answers the token getters
with the values of --access-token and --id-token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if socket == "" {
				cfg, err := LoadConfig(resolveConfigPath())
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				socket = cfg.HostSocket
			}
			if socket == "" {
				return fmt.Errorf("no host socket: pass --socket or set host_socket in the config")
			}

			conn, err := net.Dial(network, socket)
			if err != nil {
				return fmt.Errorf("connect to host socket: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "attached to %s\n", socket)

			host := NewDevHost(out, accessToken, idToken)
			if err := bridge.ServeAsHost(cmd.Context(), conn, host); err != nil {
				return err
			}
			fmt.Fprintln(out, "front end disconnected")
			return nil
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "", "Host socket address (default from config host_socket)")
	cmd.Flags().StringVar(&network, "network", "unix", "Socket network: unix or tcp")
	cmd.Flags().StringVar(&accessToken, "access-token", os.Getenv("AUTHVIEW_DEV_ACCESS_TOKEN"), "Value returned by getAccessToken")
	cmd.Flags().StringVar(&idToken, "id-token", "", "Value returned by getIdToken (simulates a social sign-in)")
	return cmd
}
