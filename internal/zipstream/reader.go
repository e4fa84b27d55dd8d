// Package zipstream reads zip archives as a forward-only stream of local
// entry headers. Unlike archive/zip it needs no io.ReaderAt and never seeks to
// the central directory, so it works on any byte stream a loading context can
// open.
package zipstream

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Magic is the local file header signature every zip archive starts with.
var Magic = []byte{'P', 'K', 0x03, 0x04}

var (
	ErrFormat      = errors.New("zipstream: not a valid zip stream")
	ErrUnsupported = errors.New("zipstream: unsupported entry")
)

const (
	fileHeaderSignature       = 0x04034b50
	directoryHeaderSignature  = 0x02014b50
	directoryEndSignature     = 0x06054b50
	archiveExtraSignature     = 0x08064b50
	dataDescriptorSignature   = 0x08074b50
	fileHeaderLen             = 26 // after the signature
	zip64ExtraID              = 0x0001
	flagEncrypted             = 0x1
	flagDataDescriptor        = 0x8
	methodStore               = 0
	methodDeflate             = 8
	uint32max                 = 0xffffffff
	descriptorLen             = 12 // crc32 + two 32-bit sizes
	zip64DescriptorLen        = 20 // crc32 + two 64-bit sizes
	descriptorWithSignature   = 4 + descriptorLen
	zip64DescriptorWithPrefix = 4 + zip64DescriptorLen
)

// Header describes one local entry.
type Header struct {
	Name             string
	Method           uint16
	Flags            uint16
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
}

// IsDir reports whether the entry is a directory marker.
func (h *Header) IsDir() bool {
	return strings.HasSuffix(h.Name, "/")
}

func (h *Header) hasDescriptor() bool {
	return h.Flags&flagDataDescriptor != 0
}

// HasMagic reads the first bytes of r and reports whether they are the zip
// local header signature. Short streams are not archives.
func HasMagic(r io.Reader) (bool, error) {
	buf := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(buf, Magic), nil
}

// Reader iterates over the entries of a zip stream. Next advances to the next
// entry; Read returns the uncompressed content of the current entry.
type Reader struct {
	r     *bufio.Reader
	hdr   *Header
	zip64 bool
	raw   *io.LimitedReader // compressed bytes of the current entry, when sized
	cur   io.Reader         // uncompressed bytes of the current entry
	close func() error
	err   error
}

// NewReader returns a Reader consuming r from its current position.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br}
}

// Next skips the rest of the current entry and returns the next header.
// It returns io.EOF once the central directory (or the end of the stream) is
// reached.
func (z *Reader) Next() (*Header, error) {
	if z.err != nil {
		return nil, z.err
	}
	if z.hdr != nil {
		if err := z.finishEntry(); err != nil {
			z.err = err
			return nil, err
		}
	}
	hdr, err := z.readHeader()
	if err != nil {
		z.err = err
		return nil, err
	}
	z.hdr = hdr
	return hdr, nil
}

// Read reads the uncompressed content of the current entry.
func (z *Reader) Read(p []byte) (int, error) {
	if z.hdr == nil || z.cur == nil {
		return 0, io.EOF
	}
	return z.cur.Read(p)
}

func (z *Reader) readHeader() (*Header, error) {
	var sig [4]byte
	if _, err := io.ReadFull(z.r, sig[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading signature: %v", ErrFormat, err)
	}
	switch binary.LittleEndian.Uint32(sig[:]) {
	case fileHeaderSignature:
	case directoryHeaderSignature, directoryEndSignature, archiveExtraSignature:
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("%w: unexpected signature %x", ErrFormat, sig)
	}

	var fixed [fileHeaderLen]byte
	if _, err := io.ReadFull(z.r, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated local header: %v", ErrFormat, err)
	}
	b := readBuf(fixed[:])
	b.uint16() // version needed
	hdr := &Header{}
	hdr.Flags = b.uint16()
	hdr.Method = b.uint16()
	b.uint32() // modified time and date
	hdr.CRC32 = b.uint32()
	hdr.CompressedSize = uint64(b.uint32())
	hdr.UncompressedSize = uint64(b.uint32())
	nameLen := int(b.uint16())
	extraLen := int(b.uint16())

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(z.r, name); err != nil {
		return nil, fmt.Errorf("%w: truncated entry name: %v", ErrFormat, err)
	}
	hdr.Name = string(name)

	extra := make([]byte, extraLen)
	if _, err := io.ReadFull(z.r, extra); err != nil {
		return nil, fmt.Errorf("%w: truncated extra field: %v", ErrFormat, err)
	}
	z.zip64 = parseZip64(hdr, extra)

	z.openEntry(hdr)
	return hdr, nil
}

// parseZip64 applies the zip64 extended information field, if any, and
// reports whether one was present.
func parseZip64(hdr *Header, extra []byte) bool {
	b := readBuf(extra)
	for len(b) >= 4 {
		id := b.uint16()
		size := int(b.uint16())
		if len(b) < size {
			return false
		}
		field := readBuf(b[:size])
		b = b[size:]
		if id != zip64ExtraID {
			continue
		}
		if hdr.UncompressedSize == uint32max && len(field) >= 8 {
			hdr.UncompressedSize = field.uint64()
		}
		if hdr.CompressedSize == uint32max && len(field) >= 8 {
			hdr.CompressedSize = field.uint64()
		}
		return true
	}
	return false
}

func (z *Reader) openEntry(hdr *Header) {
	z.raw, z.cur, z.close = nil, nil, nil

	if !hdr.hasDescriptor() {
		z.raw = &io.LimitedReader{R: z.r, N: int64(hdr.CompressedSize)}
		switch {
		case hdr.Flags&flagEncrypted != 0:
			z.cur = errReader{fmt.Errorf("%w: %s is encrypted", ErrUnsupported, hdr.Name)}
		case hdr.Method == methodStore:
			z.cur = z.raw
		case hdr.Method == methodDeflate:
			fr := flate.NewReader(z.raw)
			z.cur, z.close = fr, fr.Close
		default:
			z.cur = errReader{fmt.Errorf("%w: %s uses compression method %d", ErrUnsupported, hdr.Name, hdr.Method)}
		}
		return
	}

	// Sizes follow the data; the end of the entry has to be found from the
	// data itself.
	switch {
	case hdr.Flags&flagEncrypted != 0:
		z.cur = errReader{fmt.Errorf("%w: %s is encrypted and sized by a data descriptor", ErrUnsupported, hdr.Name)}
	case hdr.Method == methodDeflate:
		// bufio.Reader is an io.ByteReader, so flate stops exactly at the end
		// of the compressed stream.
		fr := flate.NewReader(z.r)
		z.cur, z.close = fr, fr.Close
	case hdr.Method == methodStore:
		z.cur = &storedReader{r: z.r}
	default:
		z.cur = errReader{fmt.Errorf("%w: %s uses compression method %d with a data descriptor", ErrUnsupported, hdr.Name, hdr.Method)}
	}
}

func (z *Reader) finishEntry() error {
	hdr := z.hdr
	defer func() {
		if z.close != nil {
			_ = z.close()
		}
		z.hdr, z.raw, z.cur, z.close = nil, nil, nil, nil
	}()

	if z.raw != nil {
		if _, err := io.Copy(io.Discard, z.raw); err != nil {
			return fmt.Errorf("%w: skipping %s: %v", ErrFormat, hdr.Name, err)
		}
		if z.raw.N > 0 {
			return fmt.Errorf("%w: %s is truncated", ErrFormat, hdr.Name)
		}
		return nil
	}

	if _, err := io.Copy(io.Discard, z.cur); err != nil {
		if errors.Is(err, ErrUnsupported) {
			return err
		}
		return fmt.Errorf("%w: skipping %s: %v", ErrFormat, hdr.Name, err)
	}
	return z.readDescriptor()
}

func (z *Reader) readDescriptor() error {
	var sig [4]byte
	if _, err := io.ReadFull(z.r, sig[:]); err != nil {
		return fmt.Errorf("%w: truncated data descriptor: %v", ErrFormat, err)
	}
	rest := descriptorLen - 4
	if binary.LittleEndian.Uint32(sig[:]) == dataDescriptorSignature {
		rest = descriptorLen
	}
	if z.zip64 {
		rest += zip64DescriptorLen - descriptorLen
	}
	if _, err := io.CopyN(io.Discard, z.r, int64(rest)); err != nil {
		return fmt.Errorf("%w: truncated data descriptor: %v", ErrFormat, err)
	}
	return nil
}

// storedReader yields the bytes of an uncompressed entry whose size is only
// recorded in the trailing data descriptor. The entry ends where a signed
// descriptor whose sizes equal the bytes consumed so far begins.
type storedReader struct {
	r    *bufio.Reader
	n    uint64
	done bool
}

func (s *storedReader) Read(p []byte) (int, error) {
	i := 0
	for i < len(p) && !s.done {
		if s.atDescriptor() {
			s.done = true
			break
		}
		c, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return i, err
		}
		p[i] = c
		i++
		s.n++
	}
	if i == 0 && s.done {
		return 0, io.EOF
	}
	return i, nil
}

func (s *storedReader) atDescriptor() bool {
	b, _ := s.r.Peek(descriptorWithSignature)
	if len(b) < descriptorWithSignature || binary.LittleEndian.Uint32(b) != dataDescriptorSignature {
		return false
	}
	if uint64(binary.LittleEndian.Uint32(b[8:])) == s.n && uint64(binary.LittleEndian.Uint32(b[12:])) == s.n {
		return true
	}
	b, _ = s.r.Peek(zip64DescriptorWithPrefix)
	return len(b) == zip64DescriptorWithPrefix &&
		binary.LittleEndian.Uint64(b[8:]) == s.n &&
		binary.LittleEndian.Uint64(b[16:]) == s.n
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

type readBuf []byte

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}
