package zebra

import "errors"

var (
	ErrMalformedHeader      = errors.New("zebra: malformed header")
	ErrTruncatedRecord      = errors.New("zebra: truncated physical record")
	ErrTruncatedBankPayload = errors.New("zebra: truncated bank payload")
	ErrShortLogicalRecord   = errors.New("zebra: short logical record")
	ErrInvalidRecordSize    = errors.New("zebra: invalid physical record size")
	ErrInvalidSkipOffset    = errors.New("zebra: invalid skip offset")
	ErrInvalidIOControl     = errors.New("zebra: invalid I/O control word")
	ErrInvalidPilotSkip     = errors.New("zebra: invalid pilot skip")
	ErrEmptyPaddingRecord   = errors.New("zebra: padding record with zero size")
	ErrUnknownRecordType    = errors.New("zebra: unknown record type")
)
