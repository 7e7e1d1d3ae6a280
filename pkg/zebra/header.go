package zebra

import (
	"encoding/binary"
	"fmt"
	"math"
)

func shortHeader(what string, got, want int) error {
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrMalformedHeader, what, want, got)
}

func u32(b []byte, word int) uint32 {
	return binary.BigEndian.Uint32(b[word*wordSize:])
}

func DecodeSteeringBlock(b []byte) (SteeringBlock, error) {
	if len(b) < SteeringBlockSize {
		return SteeringBlock{}, shortHeader("steering block", len(b), SteeringBlockSize)
	}
	flags := u32(b, 4)
	return SteeringBlock{
		Stamp:         [4]uint32{u32(b, 0), u32(b, 1), u32(b, 2), u32(b, 3)},
		EmergencyStop: flags>>31&1 == 1,
		EndOfRun:      flags>>30&1 == 1,
		StartOfRun:    flags>>29&1 == 1,
		Padding:       uint8(flags >> 24 & 0x1f),
		Size:          flags & 0xffffff,
		Count:         u32(b, 5),
		Skip:          u32(b, 6),
		FastBlocks:    u32(b, 7),
	}, nil
}

func DecodeControlWord(b []byte) (ControlWord, error) {
	if len(b) < ControlWordSize {
		return ControlWord{}, shortHeader("control word", len(b), ControlWordSize)
	}
	return ControlWord{Size: u32(b, 0), Type: RecordType(u32(b, 1))}, nil
}

func DecodePilot(b []byte) (Pilot, error) {
	if len(b) < PilotSize {
		return Pilot{}, shortHeader("pilot", len(b), PilotSize)
	}
	return Pilot{
		Check:      math.Float32frombits(u32(b, 0)),
		Version:    u32(b, 1),
		Process:    u32(b, 2),
		Reserve:    u32(b, 3),
		SizeText:   u32(b, 4),
		SizeSeg:    u32(b, 5),
		SizeRel:    u32(b, 6),
		SizeBank:   u32(b, 7),
		EntryLink:  u32(b, 8),
		SizeHeader: u32(b, 9),
	}, nil
}

func DecodeIOControl(b []byte) (IOControl, error) {
	if len(b) < IOControlSize {
		return IOControl{}, shortHeader("I/O control", len(b), IOControlSize)
	}
	w := u32(b, 0)
	return IOControl{CharWord: uint16(w >> 16), Size: uint16(w)}, nil
}

func DecodeBank(b []byte) (Bank, error) {
	if len(b) < BankSize {
		return Bank{}, shortHeader("bank", len(b), BankSize)
	}
	var bk Bank
	bk.Next = u32(b, 0)
	bk.Up = u32(b, 1)
	bk.Origin = u32(b, 2)
	bk.ID = u32(b, 3)
	copy(bk.Name[:], b[16:20])
	bk.Links = u32(b, 5)
	bk.SLinks = u32(b, 6)
	bk.Data = u32(b, 7)
	bk.Status = u32(b, 8)
	return bk, nil
}
