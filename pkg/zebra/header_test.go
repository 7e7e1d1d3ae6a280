package zebra

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func words(vs ...uint32) []byte {
	var b []byte
	for _, v := range vs {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	return b
}

func TestDecodeSteeringBlockBitfields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags uint32
		want  SteeringBlock
	}{
		{
			name:  "emergency and start of run",
			flags: 0xA0000014,
			want:  SteeringBlock{EmergencyStop: true, StartOfRun: true, Size: 20},
		},
		{
			name:  "end of run",
			flags: 0x40000100,
			want:  SteeringBlock{EndOfRun: true, Size: 256},
		},
		{
			name:  "padding bits do not leak into size",
			flags: 0x1F000005,
			want:  SteeringBlock{Padding: 0x1f, Size: 5},
		},
		{
			name:  "full 24 bit size",
			flags: 0x00FFFFFF,
			want:  SteeringBlock{Size: 0xFFFFFF},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			raw := words(1, 2, 3, 4, tc.flags, 7, 9, 2)
			sb, err := DecodeSteeringBlock(raw)
			require.NoError(t, err)

			want := tc.want
			want.Stamp = [4]uint32{1, 2, 3, 4}
			want.Count = 7
			want.Skip = 9
			want.FastBlocks = 2
			require.Equal(t, want, sb)
		})
	}
}

func TestSteeringBlockSizes(t *testing.T) {
	t.Parallel()

	sb := SteeringBlock{Size: 20}
	require.EqualValues(t, 48, sb.PayloadSize())

	sb = SteeringBlock{Size: 10, FastBlocks: 1}
	require.EqualValues(t, 48, sb.PayloadSize())

	sb = SteeringBlock{Size: 4}
	require.Negative(t, sb.PayloadSize())

	sb = SteeringBlock{Skip: 10}
	require.EqualValues(t, 8, sb.SkipOffset())

	sb = SteeringBlock{Skip: 3}
	require.Negative(t, sb.SkipOffset())
}

func TestDecodeShortInput(t *testing.T) {
	t.Parallel()

	_, err := DecodeSteeringBlock(make([]byte, SteeringBlockSize-1))
	require.ErrorIs(t, err, ErrMalformedHeader)

	_, err = DecodeControlWord(make([]byte, 7))
	require.ErrorIs(t, err, ErrMalformedHeader)

	_, err = DecodePilot(make([]byte, 39))
	require.ErrorIs(t, err, ErrMalformedHeader)

	_, err = DecodeIOControl(make([]byte, 3))
	require.ErrorIs(t, err, ErrMalformedHeader)

	_, err = DecodeBank(make([]byte, 35))
	require.ErrorIs(t, err, ErrMalformedHeader)
}

func TestDecodeControlWord(t *testing.T) {
	t.Parallel()

	cw, err := DecodeControlWord(words(12, 2))
	require.NoError(t, err)
	require.Equal(t, ControlWord{Size: 12, Type: RecordNormal}, cw)
	require.EqualValues(t, 56, cw.RecordLen())
}

func TestDecodePilot(t *testing.T) {
	t.Parallel()

	raw := words(math.Float32bits(3.5), 1, 2, 3, 4, 5, 6, 7, 8, 9)
	p, err := DecodePilot(raw)
	require.NoError(t, err)
	require.Equal(t, Pilot{
		Check: 3.5, Version: 1, Process: 2, Reserve: 3,
		SizeText: 4, SizeSeg: 5, SizeRel: 6, SizeBank: 7, EntryLink: 8, SizeHeader: 9,
	}, p)
	require.EqualValues(t, 9+5+6+4, p.SkipWords())
}

func TestDecodeIOControlHalfWords(t *testing.T) {
	t.Parallel()

	ioc, err := DecodeIOControl(words(0x0003000C))
	require.NoError(t, err)
	require.EqualValues(t, 3, ioc.Char())
	require.EqualValues(t, 12, ioc.Size)
}

func TestDecodeBank(t *testing.T) {
	t.Parallel()

	raw := words(1, 2, 3, 4)
	raw = append(raw, 'P', 'M', 'T', ' ')
	raw = append(raw, words(5, 6, 7, 8)...)

	b, err := DecodeBank(raw)
	require.NoError(t, err)
	require.Equal(t, Bank{
		Next: 1, Up: 2, Origin: 3, ID: 4, Name: [4]byte{'P', 'M', 'T', ' '},
		Links: 5, SLinks: 6, Data: 7, Status: 8,
	}, b)
	require.Equal(t, "PMT ", b.NameString())
}

func TestBankNameStopsAtNUL(t *testing.T) {
	t.Parallel()

	b := Bank{Name: [4]byte{'A', 'B', 0, 'X'}}
	require.Equal(t, "AB", b.NameString())

	b = Bank{Name: [4]byte{0xff, 'A', 'B', 'C'}}
	require.Equal(t, "\xffABC", b.NameString())
}

func TestRecordTypeClasses(t *testing.T) {
	t.Parallel()

	for typ := RecordType(0); typ < 10; typ++ {
		normal := typ >= 2 && typ <= 4
		padding := typ == 5 || typ == 6
		require.Equal(t, normal, typ.IsNormal(), "type %d", typ)
		require.Equal(t, padding, typ.IsPadding(), "type %d", typ)
	}
	require.Equal(t, "start-of-run", RecordStartOfRun.String())
	require.Equal(t, "padding(6)", RecordType(6).String())
	require.Equal(t, "type(7)", RecordType(7).String())
}
