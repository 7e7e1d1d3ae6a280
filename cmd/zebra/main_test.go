package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/tlatorre-uchicago/zebra/internal/zebratest"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

func stream(names ...string) []byte {
	var b zebratest.Builder
	b.Add(zebratest.LogicalRecord(zebra.RecordStartOfRun, 0, nil))
	for i, n := range names {
		b.Add(zebratest.LogicalRecord(zebra.RecordNormal, 1, zebratest.Chain(
			zebratest.Bank{Name: n, ID: uint32(i), Data: []byte("ZEBRA!!!")},
		)))
	}
	return b.Frame(32)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// run executes the CLI with an empty config file and returns stdout and
// stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfg := writeFile(t, t.TempDir(), "config.yaml", nil)

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(context.Background(), append([]string{"zebra", "--config", cfg}, args...))
	return stdout.String(), stderr.String(), err
}

func TestBanksKeepsArgumentOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.zeb", stream("AAAA", "BBBB"))
	b := writeFile(t, dir, "b.zeb.gz", gzipped(t, stream("CCCC")))

	for _, jobs := range []string{"1", "4"} {
		out, _, err := run(t, "--jobs", jobs, "banks", a, b)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		require.Contains(t, lines[0], "AAAA")
		require.Contains(t, lines[1], "BBBB")
		require.Contains(t, lines[2], "CCCC")
		require.True(t, strings.HasPrefix(lines[2], b))
	}
}

func TestBanksMatchJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "run.zeb", stream("PMT ", "EV  ", "PMTX"))

	out, _, err := run(t, "--output", "json", "--digest", "banks", "--match", "^PMT", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &got))
		require.True(t, strings.HasPrefix(got["name"].(string), "PMT"))
		require.True(t, strings.HasPrefix(got["digest"].(string), "sha256:"))
	}
}

func TestBanksBadMatch(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "run.zeb", stream("PMT "))

	_, _, err := run(t, "banks", "--match", "(", path)
	require.ErrorContains(t, err, "--match")
}

func TestRecords(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "run.zeb", stream("AAAA", "BBBB"))

	out, _, err := run(t, "records", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "banks=1")
	require.Contains(t, lines[0], "tables=1")
}

func TestDump(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "run.zeb", stream("AAAA", "RAW ", "CCCC"))

	out, _, err := run(t, "dump", "--bank", "RAW", path)
	require.NoError(t, err)
	require.Contains(t, out, "RAW ")
	require.NotContains(t, out, "AAAA")
	require.Contains(t, out, "|ZEBRA!!!|")

	_, _, err = run(t, "dump", path)
	require.Error(t, err)
}

func TestFailedFileStillPrintsOthers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := writeFile(t, dir, "good.zeb", stream("GOOD"))
	cut := stream("BAD ")
	bad := writeFile(t, dir, "bad.zeb", cut[:len(cut)-6])

	out, stderr, err := run(t, "--summary", "banks", bad, good)
	require.ErrorContains(t, err, "1 of 2 files failed")
	require.Contains(t, out, "GOOD")
	require.Contains(t, out, "files=2")
	require.Contains(t, stderr, "decode failed")
}

func TestResyncPolicy(t *testing.T) {
	t.Parallel()

	var b zebratest.Builder
	for _, n := range []string{"AAAA", "BBBB", "CCCC"} {
		b.Add(zebratest.LogicalRecord(zebra.RecordNormal, 0, zebratest.Chain(
			zebratest.Bank{Name: n, Data: []byte{0, 0, 0, 1}},
		)))
	}
	data := b.Bytes()
	copy(data[92:100], zebratest.ControlWord(1, 9))
	path := writeFile(t, t.TempDir(), "bad.zeb", b.Frame(24))

	_, stderr, err := run(t, "banks", path)
	require.ErrorContains(t, err, "1 of 1 files failed")
	require.Contains(t, stderr, "unknown record type")

	out, stderr, err := run(t, "--on-error", "resync", "banks", path)
	require.NoError(t, err)
	require.Contains(t, out, "AAAA")
	require.NotContains(t, out, "BBBB")
	require.Contains(t, out, "CCCC")
	require.Contains(t, stderr, "resynchronizing")

	_, _, err = run(t, "--on-error", "resync", "--max-resyncs", "0", "banks", path)
	require.NoError(t, err)
}

func TestConfigFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "run.zeb", stream("AAAA"))
	cfg := writeFile(t, dir, "zebra.yaml", []byte("output: json\n"))

	var stdout bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &bytes.Buffer{}
	require.NoError(t, app.Run(context.Background(), []string{"zebra", "--config", cfg, "banks", path}))
	require.True(t, json.Valid(bytes.TrimSpace(stdout.Bytes())))

	// flags win over the file
	stdout.Reset()
	app = newApp()
	app.Writer = &stdout
	app.ErrWriter = &bytes.Buffer{}
	require.NoError(t, app.Run(context.Background(), []string{"zebra", "--config", cfg, "--output", "text", "banks", path}))
	require.False(t, json.Valid(bytes.TrimSpace(stdout.Bytes())))
}

func TestInvalidOptions(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "run.zeb", stream("AAAA"))

	tests := [][]string{
		{"--on-error", "retry", "banks", path},
		{"--output", "xml", "banks", path},
		{"--log-format", "html", "banks", path},
		{"--jobs", "0", "banks", path},
		{"--max-record-size", "0", "banks", path},
		{"banks"},
	}
	for _, args := range tests {
		_, _, err := run(t, args...)
		require.Error(t, err, "args %v", args)
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "version:"))
}
