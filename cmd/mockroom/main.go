package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonardotrapani/mockroom/internal/bus"
	"github.com/leonardotrapani/mockroom/internal/config"
	"github.com/leonardotrapani/mockroom/internal/deps"
	"github.com/leonardotrapani/mockroom/internal/notify"
	"github.com/leonardotrapani/mockroom/internal/server"
	"github.com/leonardotrapani/mockroom/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "mockroom",
	Short:        "Practice interviews with a voice AI interviewer",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		callCmd(),
		serveCmd(),
		endCmd(),
		interactCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

// sendCmd builds a command that forwards one control byte to the running call.
func sendCmd(use, short string, c byte, what string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(c)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", what, err)
			}
			fmt.Println(resp)
			return nil
		},
	}
}

func endCmd() *cobra.Command {
	return sendCmd("end", "End the running interview", bus.CmdEnd, "end interview")
}

func interactCmd() *cobra.Command {
	return sendCmd("interact", "Resume interviewer audio after autoplay was blocked", bus.CmdInteract, "resume audio")
}

func statusCmd() *cobra.Command {
	return sendCmd("status", "Get the running interview status", bus.CmdStatus, "get status")
}

func versionCmd() *cobra.Command {
	return sendCmd("version", "Get protocol version", bus.CmdVersion, "get version")
}

func stopCmd() *cobra.Command {
	return sendCmd("stop", "End the interview and stop the daemon", bus.CmdQuit, "stop daemon")
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the companion server that mints sessions and grades answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	return cmd
}

func newManager(configPath string) (*config.Manager, error) {
	if configPath != "" {
		return config.NewManagerForFile(configPath)
	}
	return config.NewManager()
}

func runServe(configPath string) error {
	mgr, err := newManager(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := mgr.GetConfig()
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := newNotifier(cfg)
	mgr.OnReload(func(*config.Config) {
		notifier.Send(notify.MsgConfigReloaded)
	})
	if err := mgr.StartWatching(ctx); err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}
	defer mgr.Stop()

	srv := server.New(server.Options{Addr: cfg.Server.Addr, Config: mgr})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration editor for mockroom.
This covers:
- The interview: introduction, questions and duration
- The call and companion server (Azure OpenAI realtime)
- Live captions and answer grading
- Audio devices and notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration editor error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}
	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()
	showNextSteps(result.Config)
	return nil
}

func showNextSteps(cfg *config.Config) {
	fmt.Println("Next Steps:")
	step := 1
	if cfg.ValidateServer() == nil {
		fmt.Printf("%d. Start the companion server: mockroom serve\n", step)
	} else {
		fmt.Printf("%d. Set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT_NAME, then run: mockroom serve\n", step)
	}
	step++
	fmt.Printf("%d. Check audio tools: mockroom doctor\n", step)
	step++
	fmt.Printf("%d. Start the interview: mockroom call\n", step)
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools mockroom needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := deps.CheckAll()
			for _, t := range deps.Tools {
				st := statuses[t.Name]
				mark := "[x]"
				if !st.Installed {
					mark = "[ ]"
				}
				line := fmt.Sprintf("%s %-12s %s", mark, t.Name, t.Purpose)
				if st.Version != "" {
					line += " (" + st.Version + ")"
				}
				fmt.Println(line)
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required tool(s) missing, install pipewire-tools", len(missing))
			}
			return nil
		},
	}
}
