package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-lynx/lynx-di/boot"
)

var listPublished bool

// cmdList prints the extension names exported by each plugin.
var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List plugins and the extensions they export",
	Example: `  lynx-di list
  lynx-di list --published`,
	RunE: runList,
}

func init() {
	cmdList.Flags().BoolVarP(&listPublished, "published", "p", false, "also print the publish report")
}

func runList(cmd *cobra.Command, args []string) error {
	bc, closeConfig, err := loadBootstrap()
	if err != nil {
		return err
	}
	defer closeConfig()

	a, err := newApplication(bc)
	if err != nil {
		return err
	}
	if err := a.Start(cmd.Context()); err != nil {
		return err
	}
	defer func() { _ = a.Stop(context.Background()) }()

	out := cmd.OutOrStdout()
	m := a.Manager()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLUGIN\tVERSION\tSTATUS\tEXTENSIONS")
	fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", "(host)", bc.Lynx.Application.Version, "-", m.HostRegistry().Names())
	for _, p := range m.Plugins() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", p.ID(), p.Version(), m.Status(p.ID()), m.ExtensionNames(p.ID()))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if listPublished {
		fmt.Fprintln(out)
		printReport(out, a)
	}
	return nil
}

// printReport prints the publish report of a started application.
func printReport(out io.Writer, a *boot.Application) {
	report := a.Report()
	if report == nil {
		color.New(color.FgYellow).Fprintln(out, "host is not container-managed, nothing was published")
		return
	}
	for _, key := range report.Registered {
		color.New(color.FgGreen).Fprintf(out, "  + %s\n", key)
	}
	for _, alias := range report.SkippedAliases {
		color.New(color.FgYellow).Fprintf(out, "  ~ alias %s skipped\n", alias)
	}
	for _, f := range report.Failures {
		color.New(color.FgRed).Fprintf(out, "  ! %v\n", f)
	}
}
