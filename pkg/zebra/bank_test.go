package zebra_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tlatorre-uchicago/zebra/internal/zebratest"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

type bankPair struct {
	Bank zebra.Bank
	Data []byte
}

func readBanks(r *zebra.BankReader) ([]bankPair, error) {
	var out []bankPair
	for {
		b, data, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, bankPair{Bank: b, Data: data})
	}
}

func TestBankChainExhaustion(t *testing.T) {
	t.Parallel()

	want := []zebratest.Bank{
		{Name: "HEAD", ID: 1, Data: seq(8, 1)},
		{Name: "PMT ", ID: 2, Data: seq(40, 3), Extra: 2},
		{Name: "EMPT", ID: 3},
		{Name: "TAIL", ID: 4, Data: seq(4, 9), Extra: 1},
	}
	rec := zebratest.Chain(want...)

	r := zebra.NewBankReader(rec)
	got, err := readBanks(r)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	total := 0
	for i, w := range want {
		require.Equal(t, w.Name, got[i].Bank.NameString())
		require.Equal(t, w.ID, got[i].Bank.ID)
		require.EqualValues(t, len(w.Data)/4, got[i].Bank.Data)
		require.Equal(t, w.Data, nilIfEmpty(got[i].Data))
		total += 4 + w.Extra*4 + 36 + int(got[i].Bank.Data)*4
	}
	require.Equal(t, len(rec), total)
	require.Equal(t, len(rec), r.Offset())
	require.EqualValues(t, 13, r.IOControl().Size)
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func TestBankEmptyRecord(t *testing.T) {
	t.Parallel()

	got, err := readBanks(zebra.NewBankReader(nil))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBankReaderRestartable(t *testing.T) {
	t.Parallel()

	rec := zebratest.Chain(
		zebratest.Bank{Name: "ONE ", Data: seq(12, 0)},
		zebratest.Bank{Name: "TWO ", Data: seq(4, 50)},
	)
	first, err := readBanks(zebra.NewBankReader(rec))
	require.NoError(t, err)
	second, err := readBanks(zebra.NewBankReader(rec))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBankPayloadIsCopy(t *testing.T) {
	t.Parallel()

	rec := zebratest.Chain(zebratest.Bank{Name: "COPY", Data: seq(8, 10)})
	orig := bytes.Clone(rec)

	_, data, err := zebra.NewBankReader(rec).Next()
	require.NoError(t, err)
	for i := range data {
		data[i] = 0xff
	}
	require.Equal(t, orig, rec)
}

func TestBankErrors(t *testing.T) {
	t.Parallel()

	good := zebratest.Chain(zebratest.Bank{Name: "GOOD", Data: seq(8, 1)})

	withIOSize := func(size uint32) []byte {
		b := bytes.Clone(good)
		copy(b[0:4], []byte{0, 0, byte(size >> 8), byte(size)})
		return b
	}

	tests := []struct {
		name string
		rec  []byte
		want error
		n    int
	}{
		{
			name: "payload cut short",
			rec:  good[:len(good)-4],
			want: zebra.ErrTruncatedBankPayload,
		},
		{
			name: "trailing bytes smaller than a control word",
			rec:  append(bytes.Clone(good), 1, 2),
			want: zebra.ErrTruncatedBankPayload,
			n:    1,
		},
		{
			name: "bank header cut short",
			rec:  good[:4+20],
			want: zebra.ErrTruncatedBankPayload,
		},
		{
			name: "io control below minimum",
			rec:  withIOSize(11),
			want: zebra.ErrInvalidIOControl,
		},
		{
			name: "io control skips past record",
			rec:  withIOSize(200),
			want: zebra.ErrInvalidIOControl,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := zebra.NewBankReader(tc.rec)
			got, err := readBanks(r)
			require.ErrorIs(t, err, tc.want)
			require.Len(t, got, tc.n)

			_, _, err = r.Next()
			require.ErrorIs(t, err, tc.want)
		})
	}
}
