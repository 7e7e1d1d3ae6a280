package zebra

import (
	"bytes"
	"fmt"
	"io"
)

// BankReader walks the bank chain of one logical record. To decode the same
// record again, create a new BankReader.
type BankReader struct {
	rec []byte
	off int
	err error
	ioc IOControl
}

func NewBankReader(rec []byte) *BankReader {
	return &BankReader{rec: rec}
}

// IOControl returns the I/O control word of the last bank read.
func (r *BankReader) IOControl() IOControl { return r.ioc }

// Offset returns the position of the next bank within the record.
func (r *BankReader) Offset() int { return r.off }

// Next returns the next bank header and a copy of its payload. It returns
// io.EOF once the record is consumed exactly.
func (r *BankReader) Next() (Bank, []byte, error) {
	if r.err != nil {
		return Bank{}, nil, r.err
	}
	bank, data, err := r.next()
	if err != nil {
		r.err = err
		return Bank{}, nil, err
	}
	return bank, data, nil
}

func (r *BankReader) next() (Bank, []byte, error) {
	rest := len(r.rec) - r.off
	if rest == 0 {
		return Bank{}, nil, io.EOF
	}
	start := r.off
	if rest < IOControlSize {
		return Bank{}, nil, fmt.Errorf("%w: %d trailing bytes at offset %d",
			ErrTruncatedBankPayload, rest, start)
	}
	ioc, err := DecodeIOControl(r.rec[r.off:])
	if err != nil {
		return Bank{}, nil, err
	}
	r.off += IOControlSize

	skip := (int(ioc.Size) - ioControlWords) * wordSize
	if skip < 0 || skip > len(r.rec)-r.off {
		return Bank{}, nil, fmt.Errorf("%w: size %d at offset %d skips %d of %d remaining bytes",
			ErrInvalidIOControl, ioc.Size, start, skip, len(r.rec)-r.off)
	}
	r.off += skip

	if len(r.rec)-r.off < BankSize {
		return Bank{}, nil, fmt.Errorf("%w: bank header at offset %d has %d of %d bytes",
			ErrTruncatedBankPayload, r.off, len(r.rec)-r.off, BankSize)
	}
	bank, err := DecodeBank(r.rec[r.off:])
	if err != nil {
		return Bank{}, nil, err
	}
	r.off += BankSize

	n := uint64(bank.Data) * wordSize
	if n > uint64(len(r.rec)-r.off) {
		return Bank{}, nil, fmt.Errorf("%w: bank %q declares %d words, %d bytes remain",
			ErrTruncatedBankPayload, bank.NameString(), bank.Data, len(r.rec)-r.off)
	}
	data := bytes.Clone(r.rec[r.off : r.off+int(n)])
	r.off += int(n)
	r.ioc = ioc
	return bank, data, nil
}
