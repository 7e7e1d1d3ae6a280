package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tlatorre-uchicago/zebra/internal/render"
	"github.com/tlatorre-uchicago/zebra/internal/scan"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

// printer is a scan.Sink that buffers its last line until Flush.
type printer interface {
	scan.Sink
	Flush() error
}

type fileResult struct {
	out bytes.Buffer
	sum scan.Summary
	err error
}

// stdinName selects standard input in place of a file.
const stdinName = "-"

// run scans every file named on the command line. Files are decoded
// concurrently into private buffers and printed in argument order.
func (o *options) run(ctx context.Context, cmd *cli.Command, filter func(zebra.Bank) bool,
	newPrinter func(io.Writer) printer,
) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no input files (use - for standard input)")
	}

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)
	for i, path := range paths {
		g.Go(func() error {
			res := &results[i]
			p := newPrinter(&res.out)
			res.sum, res.err = o.scanPath(gctx, path, p, filter)
			if err := p.Flush(); err != nil && res.err == nil {
				res.err = err
			}
			return nil
		})
	}
	_ = g.Wait()

	w := cmd.Root().Writer
	var total scan.Summary
	failed := 0
	for i := range results {
		res := &results[i]
		if _, err := res.out.WriteTo(w); err != nil {
			return err
		}
		total.Add(res.sum)
		if res.err != nil {
			failed++
			o.log.Error("decode failed", "file", paths[i], "err", res.err)
		}
	}
	o.log.Info("done", "files", len(paths), "failed", failed, "records", total.Records,
		"banks", total.Banks, "resyncs", total.Resyncs)

	if o.summary {
		if err := render.Summary(w, o.format, total); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func (o *options) scanPath(ctx context.Context, path string, sink scan.Sink, filter func(zebra.Bank) bool) (scan.Summary, error) {
	opts := o.scanOptions(filter)
	limit := zebra.WithMaxRecordSize(o.maxRecordSize)
	if path != stdinName {
		return scan.File(ctx, path, sink, opts, limit)
	}

	r, comp, closeFn, err := zebra.Decompress(os.Stdin)
	if err != nil {
		return scan.Summary{}, fmt.Errorf("stdin: %w", err)
	}
	defer func() { _ = closeFn() }()
	o.log.Debug("reading standard input", "compression", comp)
	return scan.Stream(ctx, "stdin", zebra.NewDecoder(r, limit), sink, opts)
}
