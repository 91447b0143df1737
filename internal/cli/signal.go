package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var pidFile string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running aerotwin server",
	Long:  `Stop the aerotwin server by sending SIGTERM to the process specified in the PID file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalServer(syscall.SIGTERM, "stopped")
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the aerotwin server configuration",
	Long: `Reload the aerotwin server configuration by sending SIGHUP to the process.
Only auth credentials are applied at runtime; other settings need a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalServer(syscall.SIGHUP, "reload_requested")
	},
}

func init() {
	for _, cmd := range []*cobra.Command{stopCmd, reloadCmd} {
		cmd.Flags().StringVar(&pidFile, "pid-file", "", "PID file path (overrides config)")
		rootCmd.AddCommand(cmd)
	}
}

func signalServer(sig syscall.Signal, status string) error {
	pidPath := pidFile
	if pidPath == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pidPath = cfg.Server.PIDFile
	}

	pid, err := readPIDFile(pidPath)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %d", pid)
	}

	if err := process.Signal(sig); err != nil {
		return fmt.Errorf("failed to send signal: %w", err)
	}

	if jsonOut {
		fmt.Printf(`{"status":%q,"pid":%d}`+"\n", status, pid)
	} else {
		fmt.Printf("Sent %s to process %d\n", sig, pid)
	}
	return nil
}

func readPIDFile(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("no PID file specified (use --pid-file or configure in config)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("PID file not found: %s (server may not be running)", path)
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %s", pidStr)
	}
	return pid, nil
}
