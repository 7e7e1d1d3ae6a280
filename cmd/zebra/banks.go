package main

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/urfave/cli/v3"

	"github.com/tlatorre-uchicago/zebra/internal/render"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

func banksCmd(o *options) *cli.Command {
	var (
		match   string
		verbose bool
	)

	return &cli.Command{
		Name:      "banks",
		Usage:     "List every bank in the given files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "match", Aliases: []string{"m"}, Usage: "only list banks whose name matches this regexp", Destination: &match},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "include link and status words", Destination: &verbose},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			filter, err := nameFilter(match)
			if err != nil {
				return err
			}
			opts := o.renderOptions(verbose)
			return o.run(ctx, cmd, filter, func(w io.Writer) printer {
				return render.NewBanks(w, opts)
			})
		},
	}
}

// nameFilter compiles a bank name regexp. An empty pattern keeps every bank.
func nameFilter(pattern string) (func(zebra.Bank) bool, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("--match: %w", err)
	}
	return func(b zebra.Bank) bool { return re.MatchString(b.NameString()) }, nil
}
