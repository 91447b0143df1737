package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	host      string
	port      int
	serverURL string
	jsonOut   bool
	verbose   bool
	user      string
	password  string

	// Version info (set from main)
	Version = "0.1.0"
)

// Environment fallbacks for the client flags.
const (
	envServer   = "AEROTWIN_SERVER"
	envUser     = "AEROTWIN_USER"
	envPassword = "AEROTWIN_PASSWORD"
)

var rootCmd = &cobra.Command{
	Use:   "aerotwin",
	Short: "Assembly line quality prediction service",
	Long: `Aerotwin predicts the expected build quality and defect risk of a helicopter
assembly step from its operating conditions: operator, environment, station,
maintenance and process readings.

The model is trained on a synthetic corpus the first time it is needed and
persisted to the artifact directory, so later runs load it instead.

Client commands reach the server at --server (or $AEROTWIN_SERVER), else
http://--host:--port. Credentials default to $AEROTWIN_USER and
$AEROTWIN_PASSWORD.`,
	SilenceUsage:      true,
	PersistentPreRunE: applyEnvDefaults,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost", "server host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 8080, "server port")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL, overrides --host and --port")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "auth username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "auth password")
}

// applyEnvDefaults fills client flags left unset from the environment.
func applyEnvDefaults(cmd *cobra.Command, args []string) error {
	fallbacks := []struct {
		flag   string
		env    string
		target *string
	}{
		{"server", envServer, &serverURL},
		{"user", envUser, &user},
		{"password", envPassword, &password},
	}
	for _, f := range fallbacks {
		if cmd.Flags().Changed(f.flag) {
			continue
		}
		if v, ok := os.LookupEnv(f.env); ok {
			*f.target = v
		}
	}
	return nil
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

// GetServerURL returns the base URL client commands talk to.
func GetServerURL() string {
	if serverURL != "" {
		return strings.TrimRight(serverURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
