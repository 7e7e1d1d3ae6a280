package zebra

import (
	"bytes"
	"fmt"
)

// LogicalStats counts what a LogicalReader consumed besides emitted records.
type LogicalStats struct {
	Records        int
	PaddingRecords int
	PaddingWords   int
	StartOfRun     int
	Resyncs        int
	// Discarded is the number of buffered bytes dropped by Resync.
	Discarded int64
}

// LogicalReader reassembles logical records from physical record payloads
// and returns the bank chain of each normal record.
type LogicalReader struct {
	phys *PhysicalReader

	// buf[pos:] holds bytes not yet consumed.
	buf []byte
	pos int
	err error

	// resyncing is set until a physical record with a skip anchor arrives.
	resyncing bool

	cw    ControlWord
	pilot Pilot
	stats LogicalStats
}

func NewLogicalReader(p *PhysicalReader) *LogicalReader {
	return &LogicalReader{phys: p}
}

// Physical returns the underlying physical reader.
func (l *LogicalReader) Physical() *PhysicalReader { return l.phys }

// Control returns the control word of the last emitted record.
func (l *LogicalReader) Control() ControlWord { return l.cw }

// Pilot returns the pilot of the last emitted record.
func (l *LogicalReader) Pilot() Pilot { return l.pilot }

func (l *LogicalReader) Stats() LogicalStats { return l.stats }

// Buffered returns the number of bytes held but not yet consumed.
func (l *LogicalReader) Buffered() int { return len(l.buf) - l.pos }

// Next returns the bank chain of the next normal logical record, with the
// control word, pilot and pilot tables stripped. It returns io.EOF when the
// physical stream ends, including when it ends inside a record. After any
// other error Next keeps returning that error until Resync is called.
func (l *LogicalReader) Next() ([]byte, error) {
	if l.err != nil {
		return nil, l.err
	}
	rec, err := l.next()
	if err != nil {
		l.err = err
		return nil, err
	}
	return rec, nil
}

// Resync drops everything buffered and asks the physical reader to start
// the next record at its skip anchor. It fails with the physical reader's
// error when that layer is broken, since the stream position is then lost.
func (l *LogicalReader) Resync() error {
	if err := l.phys.Err(); err != nil {
		return err
	}
	l.stats.Resyncs++
	l.stats.Discarded += int64(l.Buffered())
	l.buf = l.buf[:0]
	l.pos = 0
	l.err = nil
	l.resyncing = true
	l.phys.RequestResync()
	return nil
}

func (l *LogicalReader) next() ([]byte, error) {
	for {
		b := l.buf[l.pos:]
		if len(b) >= wordSize && b[0]|b[1]|b[2]|b[3] == 0 {
			l.discard(wordSize)
			l.stats.PaddingWords++
			continue
		}
		if len(b) < ControlWordSize {
			if err := l.fill(); err != nil {
				return nil, err
			}
			continue
		}

		cw, err := DecodeControlWord(b)
		if err != nil {
			return nil, err
		}
		if err := l.ensure(cw.RecordLen()); err != nil {
			return nil, err
		}
		b = l.buf[l.pos:]

		switch {
		case cw.Type.IsNormal():
		case cw.Type.IsPadding():
			if cw.Size == 0 {
				return nil, fmt.Errorf("%w: type %d", ErrEmptyPaddingRecord, uint32(cw.Type))
			}
			l.discard(ControlWordSize + int(cw.Size-1)*wordSize)
			l.stats.PaddingRecords++
			continue
		case cw.Type == RecordStartOfRun:
			l.discard(int(cw.RecordLen()))
			l.stats.StartOfRun++
			continue
		default:
			return nil, fmt.Errorf("%w: %d (size=%d)", ErrUnknownRecordType, uint32(cw.Type), cw.Size)
		}

		if cw.Size < pilotWords {
			return nil, fmt.Errorf("%w: control word size %d is below the %d word pilot",
				ErrShortLogicalRecord, cw.Size, pilotWords)
		}
		pilot, err := DecodePilot(b[ControlWordSize:logicalHeaderSize])
		if err != nil {
			return nil, err
		}
		bodyLen := int(cw.Size-pilotWords) * wordSize
		if len(b) < logicalHeaderSize+bodyLen {
			return nil, fmt.Errorf("%w: need %d bytes, have %d",
				ErrShortLogicalRecord, logicalHeaderSize+bodyLen, len(b))
		}
		body := b[logicalHeaderSize : logicalHeaderSize+bodyLen]

		skip := pilot.SkipWords() * wordSize
		if skip > uint64(len(body)) {
			return nil, fmt.Errorf("%w: %d bytes of tables in a %d byte record",
				ErrInvalidPilotSkip, skip, len(body))
		}
		rec := bytes.Clone(body[skip:])

		l.discard(logicalHeaderSize + bodyLen)
		l.cw = cw
		l.pilot = pilot
		l.stats.Records++
		return rec, nil
	}
}

// ensure buffers at least n unconsumed bytes.
func (l *LogicalReader) ensure(n int64) error {
	for int64(l.Buffered()) < n {
		if err := l.fill(); err != nil {
			return err
		}
	}
	return nil
}

// fill appends the next physical payload, compacting consumed bytes first
// once they make up at least half of the arena.
func (l *LogicalReader) fill() error {
	chunk, err := l.phys.Next()
	if err != nil {
		return err
	}
	if l.resyncing {
		// No record starts in this physical record. Its whole payload
		// belongs to the damaged region, so keep looking.
		if len(chunk) == 0 {
			l.phys.RequestResync()
			return nil
		}
		l.resyncing = false
	}
	if l.pos > 0 && l.pos >= len(l.buf)/2 {
		n := copy(l.buf, l.buf[l.pos:])
		l.buf = l.buf[:n]
		l.pos = 0
	}
	l.buf = append(l.buf, chunk...)
	return nil
}

func (l *LogicalReader) discard(n int) {
	l.pos += n
	if l.pos >= len(l.buf) {
		l.buf = l.buf[:0]
		l.pos = 0
	}
}
