// Package zebra decodes ZEBRA exchange-format files.
//
// A file is a sequence of physical records, each framed by a 32-byte
// steering block. Physical records carry logical records, which may span
// several physical records and are framed by a control word and a pilot.
// Logical records carry chains of banks. Decoding happens in three pull
// stages: PhysicalReader, LogicalReader and BankReader. All values are
// big-endian.
package zebra

import "fmt"

// Fixed header sizes in bytes.
const (
	SteeringBlockSize = 32
	ControlWordSize   = 8
	PilotSize         = 40
	IOControlSize     = 4
	BankSize          = 36

	// wordSize is the size of a ZEBRA word. Every size field counts words.
	wordSize = 4

	// logicalHeaderSize covers the control word and the pilot.
	logicalHeaderSize = ControlWordSize + PilotSize

	// steeringWords is subtracted from the block size to get the payload
	// size, because the steering block counts itself.
	steeringWords = SteeringBlockSize / wordSize

	// pilotWords is the pilot counted in words. ControlWord.Size includes it.
	pilotWords = PilotSize / wordSize

	// ioControlWords is the minimum IOControl.Size; anything above it is
	// bookkeeping skipped before the bank header.
	ioControlWords = 12
)

// RecordType is the control word type. Types 2 to 4 carry data; 5 and 6 are
// padding.
type RecordType uint32

const (
	RecordStartOfRun RecordType = 1
	RecordNormal     RecordType = 2
	RecordPadding    RecordType = 5
)

func (t RecordType) IsNormal() bool  { return t >= 2 && t <= 4 }
func (t RecordType) IsPadding() bool { return t == 5 || t == 6 }

func (t RecordType) String() string {
	switch {
	case t == RecordStartOfRun:
		return "start-of-run"
	case t.IsNormal():
		return fmt.Sprintf("normal(%d)", uint32(t))
	case t.IsPadding():
		return fmt.Sprintf("padding(%d)", uint32(t))
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// SteeringBlock heads every physical record.
type SteeringBlock struct {
	Stamp         [4]uint32
	EmergencyStop bool
	EndOfRun      bool
	StartOfRun    bool
	Padding       uint8  // 5 bits, ignored
	Size          uint32 // 24 bits, in words, including the steering block
	Count         uint32
	Skip          uint32
	FastBlocks    uint32
}

// PayloadSize is the number of payload bytes following the steering block.
// It may be zero or negative for a corrupt block.
func (sb SteeringBlock) PayloadSize() int64 {
	return (int64(sb.Size)*(int64(sb.FastBlocks)+1) - steeringWords) * wordSize
}

// SkipOffset is the payload offset at which a new logical record may begin.
func (sb SteeringBlock) SkipOffset() int64 {
	return (int64(sb.Skip) - steeringWords) * wordSize
}

// ControlWord heads every logical record.
type ControlWord struct {
	Size uint32 // words following the control word
	Type RecordType
}

// RecordLen is the full logical record length including the control word.
func (cw ControlWord) RecordLen() int64 {
	return ControlWordSize + int64(cw.Size)*wordSize
}

// Pilot follows the control word of a normal record.
type Pilot struct {
	Check      float32
	Version    uint32
	Process    uint32
	Reserve    uint32
	SizeText   uint32
	SizeSeg    uint32
	SizeRel    uint32
	SizeBank   uint32
	EntryLink  uint32
	SizeHeader uint32
}

// SkipWords is the number of words of header, segment, relocation and text
// tables that precede the bank chain.
func (p Pilot) SkipWords() uint64 {
	return uint64(p.SizeHeader) + uint64(p.SizeSeg) + uint64(p.SizeRel) + uint64(p.SizeText)
}

// IOControl precedes each bank.
type IOControl struct {
	CharWord uint16
	Size     uint16
}

// Char returns the I/O characteristic half-word.
func (c IOControl) Char() uint16 { return c.CharWord }

// Bank is a bank header. Data counts the payload words that follow it.
type Bank struct {
	Next   uint32
	Up     uint32
	Origin uint32
	ID     uint32
	Name   [4]byte
	Links  uint32
	SLinks uint32
	Data   uint32
	Status uint32
}

// NameString returns the bank name up to the first NUL byte.
func (b Bank) NameString() string {
	for i, c := range b.Name {
		if c == 0 {
			return string(b.Name[:i])
		}
	}
	return string(b.Name[:])
}
