// Package render formats scan output as aligned text or newline-delimited
// JSON.
package render

import (
	_ "crypto/sha256" // registers the digest algorithm
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/opencontainers/go-digest"

	"github.com/tlatorre-uchicago/zebra/internal/scan"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a flag value to a Format. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

type Options struct {
	Format Format
	// Digest adds the sha256 digest of each bank payload.
	Digest bool
	// Verbose adds the link and status words of each bank header.
	Verbose bool
}

// writer keeps the first write error so printers can ignore it until the
// end of a scan.
type writer struct {
	w   io.Writer
	enc *json.Encoder
	err error
}

func newWriter(w io.Writer) *writer {
	return &writer{w: w, enc: json.NewEncoder(w)}
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) encode(v any) {
	if w.err != nil {
		return
	}
	w.err = w.enc.Encode(v)
}

// Name renders a bank name for display. Names that are not printable ASCII
// are quoted with Go escapes.
func Name(b zebra.Bank) string {
	s := b.NameString()
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return strconv.Quote(s)
		}
	}
	return s
}

type bankJSON struct {
	File   string `json:"file"`
	Record int    `json:"record"`
	Index  int    `json:"index"`
	Name   string `json:"name"`
	ID     uint32 `json:"id"`
	Words  uint32 `json:"words"`
	Digest string `json:"digest,omitempty"`

	Next   *uint32 `json:"next,omitempty"`
	Up     *uint32 `json:"up,omitempty"`
	Origin *uint32 `json:"origin,omitempty"`
	Links  *uint32 `json:"links,omitempty"`
	SLinks *uint32 `json:"slinks,omitempty"`
	Status *uint32 `json:"status,omitempty"`

	Data []byte `json:"data,omitempty"`
}

func (o Options) bankJSON(b scan.Bank) bankJSON {
	h := b.Header
	out := bankJSON{
		File:   b.File,
		Record: b.Record,
		Index:  b.Index,
		Name:   h.NameString(),
		ID:     h.ID,
		Words:  h.Data,
	}
	if o.Digest {
		out.Digest = digest.FromBytes(b.Data).String()
	}
	if o.Verbose {
		out.Next, out.Up, out.Origin = &h.Next, &h.Up, &h.Origin
		out.Links, out.SLinks, out.Status = &h.Links, &h.SLinks, &h.Status
	}
	return out
}

// Banks prints one line per bank.
type Banks struct {
	w    *writer
	opts Options
}

func NewBanks(w io.Writer, opts Options) *Banks {
	return &Banks{w: newWriter(w), opts: opts}
}

func (p *Banks) Record(scan.Record) error { return p.w.err }

func (p *Banks) Bank(b scan.Bank) error {
	if p.opts.Format == FormatJSON {
		p.w.encode(p.opts.bankJSON(b))
		return p.w.err
	}
	h := b.Header
	p.w.printf("%s\t%6d %3d  %-6s id=%-8d words=%-8d", b.File, b.Record, b.Index, Name(h), h.ID, h.Data)
	if p.opts.Verbose {
		p.w.printf(" next=%d up=%d origin=%d links=%d slinks=%d status=%#x",
			h.Next, h.Up, h.Origin, h.Links, h.SLinks, h.Status)
	}
	if p.opts.Digest {
		p.w.printf(" %s", digest.FromBytes(b.Data))
	}
	p.w.printf("\n")
	return p.w.err
}

// Flush reports the first write error.
func (p *Banks) Flush() error { return p.w.err }

type recordJSON struct {
	File   string `json:"file"`
	Index  int    `json:"index"`
	Type   uint32 `json:"type"`
	Words  uint32 `json:"words"`
	Tables uint64 `json:"tables"`
	Bytes  int    `json:"bytes"`
	Banks  int    `json:"banks"`
}

// Records prints one line per logical record with its bank count. A record
// is printed once the next one starts or Flush is called.
type Records struct {
	w       *writer
	opts    Options
	pending *recordJSON
}

func NewRecords(w io.Writer, opts Options) *Records {
	return &Records{w: newWriter(w), opts: opts}
}

func (p *Records) Record(r scan.Record) error {
	p.emit()
	p.pending = &recordJSON{
		File:   r.File,
		Index:  r.Index,
		Type:   uint32(r.Control.Type),
		Words:  r.Control.Size,
		Tables: r.Pilot.SkipWords(),
		Bytes:  r.Size,
	}
	return p.w.err
}

func (p *Records) Bank(scan.Bank) error {
	if p.pending != nil {
		p.pending.Banks++
	}
	return p.w.err
}

func (p *Records) Flush() error {
	p.emit()
	return p.w.err
}

func (p *Records) emit() {
	r := p.pending
	if r == nil {
		return
	}
	p.pending = nil
	if p.opts.Format == FormatJSON {
		p.w.encode(r)
		return
	}
	p.w.printf("%s\t%6d  %-10s words=%-8d tables=%-4d bytes=%-8d banks=%d\n",
		r.File, r.Index, zebra.RecordType(r.Type), r.Words, r.Tables, r.Bytes, r.Banks)
}

// Dump prints each bank header followed by a hex dump of its payload.
type Dump struct {
	w    *writer
	opts Options
}

func NewDump(w io.Writer, opts Options) *Dump {
	return &Dump{w: newWriter(w), opts: opts}
}

func (p *Dump) Record(scan.Record) error { return p.w.err }

func (p *Dump) Bank(b scan.Bank) error {
	if p.opts.Format == FormatJSON {
		v := p.opts.bankJSON(b)
		v.Data = b.Data
		p.w.encode(v)
		return p.w.err
	}
	h := b.Header
	p.w.printf("%s record %d bank %d %s id=%d words=%d", b.File, b.Record, b.Index, Name(h), h.ID, h.Data)
	if p.opts.Digest {
		p.w.printf(" %s", digest.FromBytes(b.Data))
	}
	p.w.printf("\n")
	if p.w.err != nil {
		return p.w.err
	}
	d := hex.Dumper(p.w.w)
	if _, err := d.Write(b.Data); err != nil {
		p.w.err = err
		return err
	}
	p.w.err = d.Close()
	return p.w.err
}

func (p *Dump) Flush() error { return p.w.err }

// Summary writes totals for one or more scans.
func Summary(w io.Writer, format Format, s scan.Summary) error {
	if format == FormatJSON {
		return json.NewEncoder(w).Encode(struct {
			Summary scan.Summary `json:"summary"`
		}{s})
	}
	_, err := fmt.Fprintf(w,
		"files=%d physical=%d records=%d banks=%d bytes=%d padding=%d start_of_run=%d resyncs=%d discarded=%d damaged=%d\n",
		s.Files, s.PhysicalRecords, s.Records, s.Banks, s.Bytes, s.PaddingRecords,
		s.StartOfRun, s.Resyncs, s.Discarded, s.DamagedRecords)
	return err
}
