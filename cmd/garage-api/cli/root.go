package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/garage-labs/garage-api/internal/platform/config"
)

var (
	cfgFile string
	devMode bool

	v = viper.New()
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "garage-api",
		Short: "Users and vehicles backend",
		Long: `garage-api serves the users and vehicles REST API.

Signed tokens authenticate callers, each user has at most one vehicle in use
at a time, and a daily sweep releases every vehicle still marked in use.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./garage.yaml)")
	cmd.PersistentFlags().BoolVar(&devMode, "dev", false, "development mode (debug logging, dev token secret)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	config.SetDefaults(v)
	if devMode {
		v.SetDefault("auth.mode", config.AuthModeDev)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("garage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.garage")
	}

	config.BindEnv(v)
	_ = v.ReadInConfig() // Ignore error - config file is optional
}
