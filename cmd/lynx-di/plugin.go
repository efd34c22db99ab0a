package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-lynx/lynx-di/boot"
)

// cmdPlugin enables or disables plugins through the status files of lynx.plugins.config_dir.
var cmdPlugin = &cobra.Command{
	Use:   "plugin",
	Short: "Enable or disable plugins",
}

var cmdPluginEnable = &cobra.Command{
	Use:   "enable <plugin-id>...",
	Short: "Remove plugins from the disabled list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateStatus(args, (*boot.StatusProvider).EnablePlugin, "enabled")
	},
}

var cmdPluginDisable = &cobra.Command{
	Use:   "disable <plugin-id>...",
	Short: "Add plugins to the disabled list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateStatus(args, (*boot.StatusProvider).DisablePlugin, "disabled")
	},
}

func init() {
	cmdPlugin.AddCommand(cmdPluginEnable, cmdPluginDisable)
}

func updateStatus(ids []string, apply func(*boot.StatusProvider, string) error, verb string) error {
	bc, closeConfig, err := loadBootstrap()
	if err != nil {
		return err
	}
	defer closeConfig()

	dir := bc.Lynx.Plugins.ConfigDir
	if dir == "" {
		return fmt.Errorf("lynx.plugins.config_dir is not set")
	}
	sp, err := boot.NewStatusProvider(dir)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := apply(sp, id); err != nil {
			return err
		}
		color.Green("plugin %s %s", id, verb)
	}
	return nil
}
