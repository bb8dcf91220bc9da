package compress

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// Archive is random-access archive storage, usually an *os.File.
type Archive interface {
	io.ReaderAt
	io.Closer
}

// ZipReader streams the first CSV member of a ZIP archive.
type ZipReader struct {
	member io.ReadCloser
	src    io.Closer
	name   string
}

// NewZipReader opens the first CSV member of the size-byte archive in src.
// Closing the ZipReader closes src; on error src is closed before returning.
func NewZipReader(src Archive, size int64) (*ZipReader, error) {
	zr, err := zip.NewReader(src, size)
	if err != nil {
		src.Close()
		return nil, err
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isCSV(f.Name) {
			continue
		}
		member, err := f.Open()
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		return &ZipReader{member: member, src: src, name: f.Name}, nil
	}

	src.Close()
	return nil, fmt.Errorf("zip archive: %w", ErrNoCSV)
}

// Name returns the archive member being read.
func (z *ZipReader) Name() string {
	return z.name
}

func (z *ZipReader) Read(p []byte) (int, error) {
	return z.member.Read(p)
}

func (z *ZipReader) Close() error {
	merr := z.member.Close()
	if err := z.src.Close(); err != nil {
		return err
	}
	return merr
}

// ZipWriter packs everything written to it into one member of a new ZIP archive.
type ZipWriter struct {
	archive *zip.Writer
	member  io.Writer
}

// NewZipWriter starts an archive on w with a single deflated member called name.
func NewZipWriter(w io.Writer, name string) (*ZipWriter, error) {
	archive := zip.NewWriter(w)
	member, err := archive.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return nil, err
	}
	return &ZipWriter{archive: archive, member: member}, nil
}

func (z *ZipWriter) Write(p []byte) (int, error) {
	return z.member.Write(p)
}

// Close writes the central directory. The underlying writer stays open.
func (z *ZipWriter) Close() error {
	return z.archive.Close()
}

func isCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}
