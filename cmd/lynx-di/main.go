package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/go-lynx/lynx-di/boot"
)

// release is the version of the CLI tool.
const release = "v0.1.0"

var (
	flagConf     string
	flagLogLevel string
)

// rootCmd is the root command of the lynx-di CLI.
var rootCmd = &cobra.Command{
	Use:     "lynx-di",
	Short:   "Lynx DI: container-aware plugin extensions",
	Long:    `Lynx DI boots a host container, starts the registered plugins and publishes their extensions into the host.`,
	Version: release,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagConf != "" {
			boot.GetConfigManager().SetConfigPath(flagConf)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmdRun)
	rootCmd.AddCommand(cmdList)
	rootCmd.AddCommand(cmdPlugin)
	rootCmd.PersistentFlags().StringVarP(&flagConf, "conf", "c", "", "config path, eg: --conf ./configs (defaults to $"+boot.EnvConfigPath+" or ./configs)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: error|warn|info|debug (overrides lynx.log.level)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
