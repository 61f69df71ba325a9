package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"timely/internal/apperr"
	"timely/internal/config"
	"timely/internal/daemon"
	"timely/internal/metrics"
	"timely/internal/output"
	"timely/internal/watcher"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background capture daemon",
}

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		recorder, closeRecorder, err := buildRecorder(ctx, app.Config)
		if err != nil {
			return err
		}
		defer closeRecorder()

		return daemon.New(app.Config, app.DB, watcher.New(), recorder, app.Log).Run(ctx)
	},
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pidFile := &daemon.PIDFile{Path: cfg.PIDPath()}
		if pid, running, err := pidFile.Status(); err != nil {
			return err
		} else if running {
			return apperr.New(apperr.CodeDaemonAlreadyRunning, "daemon already running (pid %d)", pid)
		}

		exe, err := os.Executable()
		if err != nil {
			return apperr.Wrap(apperr.CodeIO, err, "resolve executable")
		}
		child := exec.Command(exe, "daemon", "run")
		child.Stdout = nil
		child.Stderr = nil
		child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := child.Start(); err != nil {
			return apperr.Wrap(apperr.CodeIO, err, "spawn daemon")
		}
		// the child owns its own lifecycle from here
		_ = child.Process.Release()

		fmt.Printf("Daemon started (pid %d)\n", child.Process.Pid)
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pid, err := (&daemon.PIDFile{Path: cfg.PIDPath()}).Stop()
		if err != nil {
			return err
		}
		fmt.Printf("Daemon stopped (pid %d)\n", pid)
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pid, running, err := (&daemon.PIDFile{Path: cfg.PIDPath()}).Status()
		if err != nil {
			return err
		}

		if jsonOut {
			status := map[string]any{"running": running}
			if running {
				status["pid"] = pid
			}
			output.PrintJSON(status)
			return nil
		}
		if running {
			fmt.Printf("Daemon is running (pid %d)\n", pid)
		} else {
			fmt.Println("Daemon is not running")
		}
		return nil
	},
}

// buildRecorder returns the OTLP recorder when an endpoint is configured,
// the no-op otherwise.
func buildRecorder(ctx context.Context, cfg *config.Config) (metrics.Recorder, func(), error) {
	if cfg.OTLPEndpoint == "" {
		return metrics.NewNoOp(), func() {}, nil
	}
	rec, err := metrics.NewOTLPRecorder(ctx, cfg.OTLPEndpoint, cfg.OTLPInsecure)
	if err != nil {
		return nil, nil, fmt.Errorf("connect metrics exporter: %w", err)
	}
	return rec, func() {
		_ = rec.Close(context.Background())
	}, nil
}

func init() {
	daemonStatusCmd.Flags().Bool("json", false, "output as JSON")
	daemonCmd.AddCommand(daemonRunCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}
