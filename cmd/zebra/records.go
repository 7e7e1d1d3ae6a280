package main

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/tlatorre-uchicago/zebra/internal/render"
)

func recordsCmd(o *options) *cli.Command {
	return &cli.Command{
		Name:      "records",
		Usage:     "List logical records with their sizes and bank counts",
		ArgsUsage: "FILE...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := o.renderOptions(false)
			return o.run(ctx, cmd, nil, func(w io.Writer) printer {
				return render.NewRecords(w, opts)
			})
		},
	}
}
