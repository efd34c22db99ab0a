package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-lynx/lynx-di/cmd/lynx-di/internal/demo"
)

var runServe bool

// cmdRun boots the host, publishes the extensions and prints the host registry.
var cmdRun = &cobra.Command{
	Use:   "run",
	Short: "Start the plugins and publish their extensions",
	Long: `Start every registered plugin, publish the exported extensions into the host
container and print the result. With --serve, or when lynx.metrics.addr is set, the
host keeps running and serves Prometheus metrics until it is interrupted.`,
	Example: `  lynx-di run --conf ./configs
  lynx-di run --serve`,
	RunE: runRun,
}

func init() {
	cmdRun.Flags().BoolVar(&runServe, "serve", false, "keep running until interrupted")
}

func runRun(cmd *cobra.Command, args []string) error {
	bc, closeConfig, err := loadBootstrap()
	if err != nil {
		return err
	}
	defer closeConfig()

	a, err := newApplication(bc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runServe || bc.Lynx.Metrics.Addr != "" {
		return a.Run(ctx)
	}

	if err := a.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.Stop(context.Background()); err != nil {
			color.Red("stop: %v", err)
		}
	}()

	printReport(cmd.OutOrStdout(), a)
	for _, name := range []string{"Greeter", "hello/Greeter", "welcome/Greeter"} {
		bean, ok := a.Lookup(name)
		if !ok {
			continue
		}
		if g, ok := bean.(demo.Greeter); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", name, g.Greet("lynx"))
		}
	}
	return nil
}
