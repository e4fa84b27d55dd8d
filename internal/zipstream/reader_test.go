package zipstream

import (
	"archive/zip"
	"bytes"
	"errors"
	"hash/crc32"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name    string
	content string
}

func readAll(t *testing.T, data []byte) map[string]string {
	t.Helper()
	out := make(map[string]string)
	z := NewReader(bytes.NewReader(data))
	for {
		hdr, err := z.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		body, err := io.ReadAll(z)
		require.NoError(t, err)
		out[hdr.Name] = string(body)
	}
}

func TestReader_DeflateWithDescriptor(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	files := []entry{
		{"zoo/", ""},
		{"zoo/mock/Dog.go", "package mock\n\ntype Dog struct{}\n"},
		{"zoo/mock/Cat.go", strings.Repeat("package mock // padding\n", 200)},
	}
	for _, f := range files {
		fw, err := w.Create(f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	got := readAll(t, buf.Bytes())
	require.Len(t, got, 3)
	for _, f := range files {
		assert.Equal(t, f.content, got[f.name], f.name)
	}
}

func TestReader_StoredWithDescriptor(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range []entry{{"a.txt", "alpha"}, {"b.txt", ""}, {"c.txt", "gamma gamma"}} {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.name, Method: zip.Store})
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	got := readAll(t, buf.Bytes())
	assert.Equal(t, map[string]string{"a.txt": "alpha", "b.txt": "", "c.txt": "gamma gamma"}, got)
}

func TestReader_SizedEntries(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	stored := []byte("stored body")
	fw, err := w.CreateRaw(&zip.FileHeader{
		Name:               "stored.txt",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(stored),
		CompressedSize64:   uint64(len(stored)),
		UncompressedSize64: uint64(len(stored)),
	})
	require.NoError(t, err)
	_, err = fw.Write(stored)
	require.NoError(t, err)

	plain := []byte(strings.Repeat("deflated body ", 50))
	var compressed bytes.Buffer
	fl, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fl.Write(plain)
	require.NoError(t, err)
	require.NoError(t, fl.Close())

	fw, err = w.CreateRaw(&zip.FileHeader{
		Name:               "deflated.txt",
		Method:             zip.Deflate,
		CRC32:              crc32.ChecksumIEEE(plain),
		CompressedSize64:   uint64(compressed.Len()),
		UncompressedSize64: uint64(len(plain)),
	})
	require.NoError(t, err)
	_, err = fw.Write(compressed.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got := readAll(t, buf.Bytes())
	assert.Equal(t, string(stored), got["stored.txt"])
	assert.Equal(t, string(plain), got["deflated.txt"])
}

func TestReader_NextSkipsUnreadContent(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"one.go", "two.go", "three.go"} {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(strings.Repeat(name, 100)))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	z := NewReader(bytes.NewReader(buf.Bytes()))
	var names []string
	for {
		hdr, err := z.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
		if hdr.Name == "two.go" {
			partial := make([]byte, 3)
			_, err := io.ReadFull(z, partial)
			require.NoError(t, err)
			assert.Equal(t, "two", string(partial))
		}
	}
	assert.Equal(t, []string{"one.go", "two.go", "three.go"}, names)
}

func TestReader_DirectoryMarker(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("zoo/mock/")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	z := NewReader(&buf)
	hdr, err := z.Next()
	require.NoError(t, err)
	assert.True(t, hdr.IsDir())
	_, err = z.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_RejectsGarbage(t *testing.T) {
	z := NewReader(strings.NewReader("package mock\n"))
	_, err := z.Next()
	assert.ErrorIs(t, err, ErrFormat)

	_, err = z.Next()
	assert.ErrorIs(t, err, ErrFormat, "errors are sticky")
}

func TestReader_EmptyStream(t *testing.T) {
	z := NewReader(strings.NewReader(""))
	_, err := z.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestHasMagic(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("x")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ok, err := HasMagic(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = HasMagic(strings.NewReader("package mock"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = HasMagic(strings.NewReader("PK"))
	require.NoError(t, err)
	assert.False(t, ok)
}
