package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/mockroom/internal/audio"
	"github.com/leonardotrapani/mockroom/internal/bus"
	"github.com/leonardotrapani/mockroom/internal/config"
	"github.com/leonardotrapani/mockroom/internal/daemon"
	"github.com/leonardotrapani/mockroom/internal/grading"
	"github.com/leonardotrapani/mockroom/internal/negotiator"
	"github.com/leonardotrapani/mockroom/internal/notify"
	"github.com/leonardotrapani/mockroom/internal/realtime"
	"github.com/leonardotrapani/mockroom/internal/recording"
	"github.com/leonardotrapani/mockroom/internal/session"
	"github.com/leonardotrapani/mockroom/internal/tui"
	"github.com/spf13/cobra"
)

func callCmd() *cobra.Command {
	var (
		configPath string
		plain      bool
	)

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Start an interview and show it until it ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(configPath, plain)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print status lines instead of the full-screen view")
	return cmd
}

// buildDeps wires the session to PipeWire, the WebRTC call, the realtime
// transcriber and the grading service described by cfg.
func buildDeps(cfg *config.Config) session.Deps {
	d := session.Deps{
		Media: recording.NewPipeWireSource(cfg.ToRecordingConfig()),
		NewNegotiator: func() session.Negotiator {
			nc := cfg.ToNegotiatorConfig()
			nc.HTTPClient = &http.Client{Timeout: cfg.Call.Timeout}
			return negotiator.New(nc)
		},
		NewPlayer: func() audio.Player {
			return recording.NewPlayer(cfg.Audio.Speaker)
		},
	}
	if cfg.Transcription.Enabled {
		opts := cfg.ToRealtimeOptions()
		d.NewTranscriber = func() session.Transcriber {
			return realtime.New(opts, realtime.WebSocketTransport{})
		}
	}
	if cfg.Grading.Enabled {
		d.Grader = grading.NewClient(cfg.Grading.URL)
	}
	return d
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(cfg.Notifications.Type, cfg.Notifications.Messages.Resolve())
}

func runCall(configPath string, plain bool) error {
	mgr, err := newManager(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := mgr.GetConfig()
	notifier := newNotifier(cfg)

	sess := session.New(cfg.ToSessionConfig(), buildDeps(cfg), cfg.ToSessionOptions())

	title := cfg.Interview.Title
	if title == "" {
		title = cfg.Interview.ID
	}

	if plain {
		var last string
		d := daemon.New(sess, notifier, func(s session.Snapshot) {
			if line := daemon.StatusLine(s); line != last {
				last = line
				fmt.Println(line)
			}
		})
		return d.Run()
	}

	// the full-screen view owns the terminal, so logs go to a file
	logFile, err := openLog()
	if err != nil {
		return err
	}
	defer logFile.Close()

	prog := tui.NewCallProgram(tui.NewCallModel(title, sess, sess.Snapshot()))
	d := daemon.New(sess, notifier, func(s session.Snapshot) {
		prog.Send(tui.SnapshotMsg{Snapshot: s})
	})

	errCh := make(chan error, 1)
	go func() {
		err := d.Run()
		if err != nil {
			prog.Quit()
		}
		errCh <- err
	}()

	if _, err := prog.Run(); err != nil {
		sess.End()
		<-errCh
		return fmt.Errorf("interface error: %w", err)
	}
	return <-errCh
}

func openLog() (*os.File, error) {
	dir, err := bus.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "mockroom.log")
	f, err := tea.LogToFile(path, "")
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	return f, nil
}
