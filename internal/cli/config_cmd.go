package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haskel/aerotwin/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Display the effective configuration: the config file merged over defaults,
after ${ENV} and ${ENV:-fallback} substitution. Without --config the file
named by $AEROTWIN_CONFIG is used, then ./aerotwin.yaml, then
/etc/aerotwin/config.yaml.

With --validate only the validation result is shown.`,
	RunE: runConfig,
}

var validateOnly bool

func init() {
	configCmd.Flags().BoolVar(&validateOnly, "validate", false, "only validate config, don't print")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, source, err := config.Resolve(cfgFile)
	if err != nil {
		if jsonOut {
			fmt.Printf(`{"valid":false,"error":%q}`+"\n", err.Error())
		} else {
			fmt.Printf("Configuration invalid: %v\n", err)
		}
		return err
	}

	if source == "" {
		source = "built-in defaults"
	}

	if validateOnly {
		if jsonOut {
			fmt.Printf(`{"valid":true,"source":%q}`+"\n", source)
		} else {
			fmt.Printf("Configuration is valid (%s)\n", source)
		}
		return nil
	}

	if cfg.Auth.Password != "" {
		masked := *cfg
		masked.Auth.Password = "********"
		cfg = &masked
	}

	if jsonOut {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("# source: %s\n%s", source, data)
	}

	return nil
}
