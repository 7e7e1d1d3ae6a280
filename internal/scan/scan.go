// Package scan drives a zebra.Decoder over one stream and applies the
// caller's error policy.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tlatorre-uchicago/zebra/internal/logger"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

// Policy selects what happens when the stream turns out to be damaged.
type Policy int

const (
	// PolicyAbort stops at the first error.
	PolicyAbort Policy = iota
	// PolicyResync skips damaged records and realigns on the next physical
	// record anchor.
	PolicyResync
)

func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicyResync:
		return "resync"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps "abort" and "resync" to a Policy. The empty string is
// PolicyAbort.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return PolicyAbort, nil
	case "resync":
		return PolicyResync, nil
	default:
		return PolicyAbort, fmt.Errorf("unknown error policy %q (want abort or resync)", s)
	}
}

// Record describes one normal logical record.
type Record struct {
	File    string
	Index   int
	Control zebra.ControlWord
	Pilot   zebra.Pilot
	// Size is the length of the bank chain in bytes.
	Size int
}

// Bank is one decoded bank together with where it was found.
type Bank struct {
	File   string
	Record int
	// Index is the position of the bank within its record.
	Index  int
	Header zebra.Bank
	Data   []byte
}

// Sink receives decoded records and banks in stream order. Record is called
// before the banks of that record. A non-nil error stops the scan.
type Sink interface {
	Record(Record) error
	Bank(Bank) error
}

type Options struct {
	Policy Policy
	// MaxResyncs bounds the resyncs of one stream under PolicyResync.
	// Zero means no limit.
	MaxResyncs int
	// Filter drops banks before they reach the sink when it returns false.
	Filter func(zebra.Bank) bool
	Logger logger.Logger
}

// Summary totals what a scan saw.
type Summary struct {
	Files           int   `json:"files"`
	PhysicalRecords int   `json:"physical_records"`
	Records         int   `json:"records"`
	Banks           int   `json:"banks"`
	Bytes           int64 `json:"bytes"`
	PaddingRecords  int   `json:"padding_records"`
	StartOfRun      int   `json:"start_of_run"`
	Resyncs         int   `json:"resyncs"`
	Discarded       int64 `json:"discarded"`
	DamagedRecords  int   `json:"damaged_records"`
}

// Add accumulates o into s.
func (s *Summary) Add(o Summary) {
	s.Files += o.Files
	s.PhysicalRecords += o.PhysicalRecords
	s.Records += o.Records
	s.Banks += o.Banks
	s.Bytes += o.Bytes
	s.PaddingRecords += o.PaddingRecords
	s.StartOfRun += o.StartOfRun
	s.Resyncs += o.Resyncs
	s.Discarded += o.Discarded
	s.DamagedRecords += o.DamagedRecords
}

// ErrTooManyResyncs is returned once a stream needs more resyncs than
// Options.MaxResyncs allows.
var ErrTooManyResyncs = errors.New("scan: too many resyncs")

// Stream decodes every bank of d and hands it to sink. name labels log lines
// and sink events. The returned Summary is valid even when err is non-nil.
func Stream(ctx context.Context, name string, d *zebra.Decoder, sink Sink, opts Options) (Summary, error) {
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log = log.With("file", name)

	s := &scanner{name: name, d: d, sink: sink, opts: opts, log: log}
	err := s.run(ctx)

	stats := d.Logical().Stats()
	s.sum.Files = 1
	s.sum.PhysicalRecords = d.Physical().Records()
	s.sum.PaddingRecords = stats.PaddingRecords
	s.sum.StartOfRun = stats.StartOfRun
	s.sum.Resyncs = stats.Resyncs
	s.sum.Discarded = stats.Discarded

	if err != nil {
		return s.sum, fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("scan done", "records", s.sum.Records, "banks", s.sum.Banks, "resyncs", s.sum.Resyncs)
	return s.sum, nil
}

// File opens path and scans it with Stream.
func File(ctx context.Context, path string, sink Sink, opts Options, popts ...zebra.PhysicalOption) (Summary, error) {
	f, err := zebra.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	d, err := f.Decoder(popts...)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", path, err)
	}
	return Stream(ctx, path, d, sink, opts)
}

type scanner struct {
	name string
	d    *zebra.Decoder
	sink Sink
	opts Options
	log  logger.Logger
	sum  Summary
}

func (s *scanner) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := s.d.NextRecord()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if err := s.resync(err); err != nil {
				return err
			}
			continue
		}

		index := s.d.Record()
		s.sum.Records++
		s.sum.Bytes += int64(len(rec))
		s.log.Debug("record", "index", index, "type", s.d.Logical().Control().Type, "bytes", len(rec))

		err = s.sink.Record(Record{
			File:    s.name,
			Index:   index,
			Control: s.d.Logical().Control(),
			Pilot:   s.d.Logical().Pilot(),
			Size:    len(rec),
		})
		if err != nil {
			return err
		}
		if err := s.banks(index, rec); err != nil {
			return err
		}
	}
}

// banks walks one record. A broken chain is fatal under PolicyAbort and
// abandons the rest of the record under PolicyResync; the physical stream
// is still aligned either way.
func (s *scanner) banks(index int, rec []byte) error {
	br := zebra.NewBankReader(rec)
	for i := 0; ; i++ {
		bank, data, err := br.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if s.opts.Policy != PolicyResync {
				return fmt.Errorf("record %d: %w", index, err)
			}
			s.sum.DamagedRecords++
			s.log.Warn("skipping damaged record", "record", index, "bank", i, "err", err)
			return nil
		}
		if s.opts.Filter != nil && !s.opts.Filter(bank) {
			continue
		}
		s.sum.Banks++
		err = s.sink.Bank(Bank{File: s.name, Record: index, Index: i, Header: bank, Data: data})
		if err != nil {
			return err
		}
	}
}

// resync handles a logical or physical error according to the policy.
func (s *scanner) resync(cause error) error {
	if s.opts.Policy != PolicyResync {
		return cause
	}
	n := s.d.Logical().Stats().Resyncs
	if s.opts.MaxResyncs > 0 && n >= s.opts.MaxResyncs {
		return fmt.Errorf("%w (%d): %w", ErrTooManyResyncs, n, cause)
	}
	if err := s.d.Resync(); err != nil {
		return err
	}
	s.log.Warn("resynchronizing", "err", cause, "physical_record", s.d.Physical().Records(), "offset", s.d.Physical().Offset())
	return nil
}
