package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	o := &options{}
	return &cli.Command{
		Name:  "zebra",
		Usage: "Decode banks from ZEBRA physical record streams",
		Description: "Reads ZEBRA files written with the exchange format's steering blocks. " +
			"Files may be gzip or zstd compressed; \"-\" reads standard input.",
		Flags:  o.globalFlags(),
		Before: o.before,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			banksCmd(o),
			recordsCmd(o),
			dumpCmd(o),
			versionCmd(),
		},
	}
}
