package zebra

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", int(c))
	}
}

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decompress sniffs r for a gzip or zstd stream and returns a reader over
// the decompressed bytes. Uncompressed input is returned as is, wrapped in a
// bufio.Reader. The returned close function releases the decompressor.
func Decompress(r io.Reader) (io.Reader, Compression, func() error, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(magicZstd))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, CompressionNone, nil, err
	}
	switch detectCompression(head) {
	case CompressionZstd:
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, CompressionZstd, nil, fmt.Errorf("zstd: %w", err)
		}
		return bufio.NewReader(dec), CompressionZstd, func() error { dec.Close(); return nil }, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, CompressionGzip, nil, fmt.Errorf("gzip: %w", err)
		}
		return bufio.NewReader(zr), CompressionGzip, zr.Close, nil
	default:
		return br, CompressionNone, func() error { return nil }, nil
	}
}

func detectCompression(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, magicZstd):
		return CompressionZstd
	case bytes.HasPrefix(head, magicGzip):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// File is a ZEBRA file opened for decoding. It may be decoded any number of
// times; each Decoder starts at the beginning of the file.
type File struct {
	Path string

	f       *os.File
	data    []byte
	mmapped bool
	comp    Compression

	mu      sync.Mutex
	closers []func() error
}

// Open maps the file at path read-only. If mmap is unavailable the file is
// read through its descriptor instead. The file must be closed to release
// the mapping and any decompressors.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	size64 := st.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		_ = f.Close()
		return nil, fmt.Errorf("%s: file too large to map (%d bytes)", path, size64)
	}

	zf := &File{Path: path}
	if size64 > 0 {
		data, err := unix.Mmap(int(f.Fd()), 0, int(size64), unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			_ = f.Close()
			zf.data = data
			zf.mmapped = true
		}
	}
	if !zf.mmapped {
		zf.f = f
	}

	var head [4]byte
	n, err := io.ReadFull(zf.source(), head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		_ = zf.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	zf.comp = detectCompression(head[:n])
	return zf, nil
}

// Compression reports the codec detected when the file was opened.
func (f *File) Compression() Compression { return f.comp }

// Mapped reports whether the file contents are memory mapped.
func (f *File) Mapped() bool { return f.mmapped }

func (f *File) source() io.Reader {
	if f.mmapped {
		return bytes.NewReader(f.data)
	}
	if f.f == nil {
		return bytes.NewReader(nil)
	}
	st, err := f.f.Stat()
	if err != nil {
		return bytes.NewReader(nil)
	}
	return io.NewSectionReader(f.f, 0, st.Size())
}

// Decoder returns a new Decoder positioned at the start of the file.
func (f *File) Decoder(opts ...PhysicalOption) (*Decoder, error) {
	r, _, closeFn, err := Decompress(f.source())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	f.mu.Lock()
	f.closers = append(f.closers, closeFn)
	f.mu.Unlock()
	return NewDecoder(r, opts...), nil
}

// Close releases the mapping, the descriptor and every decompressor handed
// out by Decoder.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	closers := f.closers
	f.closers = nil
	f.mu.Unlock()

	var firstErr error
	for _, c := range closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if f.mmapped && f.data != nil {
		if err := unix.Munmap(f.data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.data = nil
	f.mmapped = false
	if f.f != nil {
		if err := f.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		f.f = nil
	}
	return firstErr
}
