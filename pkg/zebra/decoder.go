package zebra

import (
	"errors"
	"io"
)

// Decoder chains the three stages and yields every bank of a stream in
// order.
type Decoder struct {
	phys    *PhysicalReader
	logical *LogicalReader
	banks   *BankReader
	record  int
}

func NewDecoder(r io.Reader, opts ...PhysicalOption) *Decoder {
	phys := NewPhysicalReader(r, opts...)
	return &Decoder{
		phys:    phys,
		logical: NewLogicalReader(phys),
		record:  -1,
	}
}

func (d *Decoder) Physical() *PhysicalReader { return d.phys }
func (d *Decoder) Logical() *LogicalReader   { return d.logical }

// Record returns the zero-based index of the logical record the last bank
// came from, or -1 before the first record.
func (d *Decoder) Record() int { return d.record }

// NextRecord abandons any banks left in the current record and returns the
// bank chain of the next logical record. Banks of the returned record are
// not served by Next; walk them with a BankReader.
func (d *Decoder) NextRecord() ([]byte, error) {
	d.banks = nil
	rec, err := d.logical.Next()
	if err != nil {
		return nil, err
	}
	d.record++
	return rec, nil
}

// Next returns the next bank and its payload. It returns io.EOF at the end
// of the stream.
func (d *Decoder) Next() (Bank, []byte, error) {
	for {
		if d.banks == nil {
			rec, err := d.NextRecord()
			if err != nil {
				return Bank{}, nil, err
			}
			d.banks = NewBankReader(rec)
		}
		bank, data, err := d.banks.Next()
		if errors.Is(err, io.EOF) {
			d.banks = nil
			continue
		}
		if err != nil {
			return Bank{}, nil, err
		}
		return bank, data, nil
	}
}

// SkipRecord abandons the remaining banks of the current logical record.
// The physical stream is untouched.
func (d *Decoder) SkipRecord() {
	d.banks = nil
}

// Resync abandons the current record and resynchronizes the logical reader
// on the next physical record.
func (d *Decoder) Resync() error {
	d.banks = nil
	return d.logical.Resync()
}
