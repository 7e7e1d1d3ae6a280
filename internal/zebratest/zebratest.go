// Package zebratest builds synthetic ZEBRA byte streams for tests.
package zebratest

import (
	"encoding/binary"
	"math"

	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

func word(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// SteeringBlock encodes sb in its 32-byte wire layout.
func SteeringBlock(sb zebra.SteeringBlock) []byte {
	out := make([]byte, 0, zebra.SteeringBlockSize)
	for _, s := range sb.Stamp {
		out = word(out, s)
	}
	var flags uint32
	if sb.EmergencyStop {
		flags |= 1 << 31
	}
	if sb.EndOfRun {
		flags |= 1 << 30
	}
	if sb.StartOfRun {
		flags |= 1 << 29
	}
	flags |= uint32(sb.Padding&0x1f) << 24
	flags |= sb.Size & 0xffffff
	out = word(out, flags)
	out = word(out, sb.Count)
	out = word(out, sb.Skip)
	out = word(out, sb.FastBlocks)
	return out
}

// PhysicalRecord frames payload with a steering block sized to fit it.
// len(payload) must be a multiple of four.
func PhysicalRecord(payload []byte, skip uint32) []byte {
	sb := zebra.SteeringBlock{
		Size: uint32(len(payload)/4 + 8),
		Skip: skip,
	}
	return append(SteeringBlock(sb), payload...)
}

func ControlWord(size uint32, typ zebra.RecordType) []byte {
	return word(word(nil, size), uint32(typ))
}

func Pilot(p zebra.Pilot) []byte {
	out := word(nil, math.Float32bits(p.Check))
	for _, v := range []uint32{p.Version, p.Process, p.Reserve, p.SizeText, p.SizeSeg,
		p.SizeRel, p.SizeBank, p.EntryLink, p.SizeHeader} {
		out = word(out, v)
	}
	return out
}

// Bank describes one bank of a chain.
type Bank struct {
	Name string
	ID   uint32
	// Data is the payload; its length must be a multiple of four.
	Data []byte
	// Extra is the number of bookkeeping words between the I/O control word
	// and the bank header.
	Extra int
}

// EncodeBank returns the I/O control word, bookkeeping words, header and
// payload of b.
func EncodeBank(b Bank) []byte {
	out := word(nil, uint32(12+b.Extra))
	out = append(out, make([]byte, b.Extra*4)...)
	var name [4]byte
	copy(name[:], b.Name)
	out = word(out, 0) // next
	out = word(out, 0) // up
	out = word(out, 0) // origin
	out = word(out, b.ID)
	out = append(out, name[:]...)
	out = word(out, 0) // links
	out = word(out, 0) // slinks
	out = word(out, uint32(len(b.Data)/4))
	out = word(out, 0) // status
	return append(out, b.Data...)
}

// Chain encodes banks back to back.
func Chain(banks ...Bank) []byte {
	var out []byte
	for _, b := range banks {
		out = append(out, EncodeBank(b)...)
	}
	return out
}

// LogicalRecord encodes a normal record whose pilot declares tables words of
// header tables before body.
func LogicalRecord(typ zebra.RecordType, tables int, body []byte) []byte {
	p := zebra.Pilot{Check: 1, Version: 3, SizeHeader: uint32(tables)}
	size := uint32(10 + tables + len(body)/4)
	out := ControlWord(size, typ)
	out = append(out, Pilot(p)...)
	out = append(out, make([]byte, tables*4)...)
	return append(out, body...)
}

// Builder accumulates logical records and splits them into physical records.
type Builder struct {
	data   []byte
	starts []int
}

// Add appends a complete logical record.
func (b *Builder) Add(rec []byte) *Builder {
	b.starts = append(b.starts, len(b.data))
	b.data = append(b.data, rec...)
	return b
}

// AddRaw appends bytes that do not start a record, such as padding words.
func (b *Builder) AddRaw(raw []byte) *Builder {
	b.data = append(b.data, raw...)
	return b
}

// Bytes returns the logical stream.
func (b *Builder) Bytes() []byte { return b.data }

// Frame splits the logical stream into physical records of blockWords words
// each, steering block included. The last block is zero padded. Each skip
// field points at the first record starting inside the block, or past the
// end of the block when none does.
func (b *Builder) Frame(blockWords uint32) []byte {
	payload := int(blockWords-8) * 4
	var out []byte
	for off := 0; off < len(b.data); off += payload {
		chunk := make([]byte, payload)
		copy(chunk, b.data[off:])
		skip := blockWords
		for _, s := range b.starts {
			if s >= off && s < off+payload {
				skip = uint32(8 + (s-off)/4)
				break
			}
		}
		sb := zebra.SteeringBlock{Size: blockWords, Skip: skip}
		out = append(out, SteeringBlock(sb)...)
		out = append(out, chunk...)
	}
	return out
}
