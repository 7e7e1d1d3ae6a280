package main

import (
	"context"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tlatorre-uchicago/zebra/internal/render"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

func dumpCmd(o *options) *cli.Command {
	var name string

	return &cli.Command{
		Name:      "dump",
		Usage:     "Hex dump the payload of every bank with the given name",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bank",
				Aliases:     []string{"b"},
				Usage:       "bank name; trailing blanks are ignored",
				Destination: &name,
				Required:    true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			want := strings.TrimRight(name, " ")
			filter := func(b zebra.Bank) bool {
				return strings.TrimRight(b.NameString(), " ") == want
			}
			opts := o.renderOptions(false)
			return o.run(ctx, cmd, filter, func(w io.Writer) printer {
				return render.NewDump(w, opts)
			})
		},
	}
}
