package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/datapipe/config"
	"github.com/kbukum/datapipe/version"
)

const appName = "datapipe"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           appName,
		Short:         "Run data integration pipelines",
		Long:          "Run data integration pipelines declared as YAML step chains.\n\nBatch pipelines run once; stream pipelines run until interrupted.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "service configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", ".env file loaded before the environment")

	root.AddCommand(newRunCmd(&flags), newValidateCmd(&flags), newOpsCmd(&flags), newVersionCmd())
	root.Version = version.Get().Short()
	return root
}

// loadConfig reads the service configuration named by the flags. Defaults
// and validation are applied by the caller.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var opts []config.LoaderOption
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFile(flags.envFile))
	}
	var cfg config.Config
	if err := config.LoadConfig(appName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
