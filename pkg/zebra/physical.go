package zebra

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxRecordSize bounds the payload of a single physical record.
const DefaultMaxRecordSize = 64 << 20

type PhysicalOption func(*PhysicalReader)

// WithMaxRecordSize sets the largest physical payload accepted before the
// record is rejected with ErrInvalidRecordSize. Values <= 0 keep the default.
func WithMaxRecordSize(n int64) PhysicalOption {
	return func(p *PhysicalReader) {
		if n > 0 {
			p.maxRecord = n
		}
	}
}

// PhysicalReader yields physical record payloads from a byte stream that is
// positioned at a steering block.
type PhysicalReader struct {
	r         *bufio.Reader
	off       int64
	maxRecord int64
	resync    bool
	err       error

	sb      SteeringBlock
	records int
}

func NewPhysicalReader(r io.Reader, opts ...PhysicalOption) *PhysicalReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	p := &PhysicalReader{r: br, maxRecord: DefaultMaxRecordSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestResync makes the next call to Next return only the part of the
// payload that starts at the steering block's skip anchor. The request is
// consumed by that call.
func (p *PhysicalReader) RequestResync() {
	p.resync = true
}

// Steering returns the steering block of the last record read.
func (p *PhysicalReader) Steering() SteeringBlock { return p.sb }

// Offset returns the stream offset of the next steering block.
func (p *PhysicalReader) Offset() int64 { return p.off }

// Records returns the number of physical records read so far.
func (p *PhysicalReader) Records() int { return p.records }

// Err returns the error that stopped the reader, if any. io.EOF is not
// reported.
func (p *PhysicalReader) Err() error {
	if errors.Is(p.err, io.EOF) {
		return nil
	}
	return p.err
}

// Next returns the next physical record payload. It returns io.EOF when the
// stream ends on a record boundary. Any other error is permanent.
func (p *PhysicalReader) Next() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	payload, err := p.next()
	if err != nil {
		p.err = err
		return nil, err
	}
	return payload, nil
}

func (p *PhysicalReader) next() ([]byte, error) {
	resync := p.resync
	p.resync = false

	var hdr [SteeringBlockSize]byte
	n, err := io.ReadFull(p.r, hdr[:])
	switch {
	case n == 0 && errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: steering block at offset %d: read %d of %d bytes",
			ErrMalformedHeader, p.off, n, SteeringBlockSize)
	case err != nil:
		return nil, err
	}
	sb, err := DecodeSteeringBlock(hdr[:])
	if err != nil {
		return nil, err
	}
	start := p.off
	p.off += SteeringBlockSize
	p.sb = sb

	size := sb.PayloadSize()
	if size <= 0 || size > p.maxRecord {
		return nil, fmt.Errorf("%w: %d bytes at offset %d (size=%d fast_blocks=%d)",
			ErrInvalidRecordSize, size, start, sb.Size, sb.FastBlocks)
	}

	payload := make([]byte, size)
	n, err = io.ReadFull(p.r, payload)
	p.off += int64(n)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: record at offset %d: read %d of %d bytes",
			ErrTruncatedRecord, start, n, size)
	}
	if err != nil {
		return nil, err
	}
	p.records++

	if !resync {
		return payload, nil
	}
	skip := sb.SkipOffset()
	if skip < 0 || skip > size {
		return nil, fmt.Errorf("%w: skip=%d gives offset %d in %d byte record at offset %d",
			ErrInvalidSkipOffset, sb.Skip, skip, size, start)
	}
	return payload[skip:], nil
}
