package compress

import (
	"archive/tar"
	"fmt"
	"io"
)

// TarReader implements io.ReadCloser over the first CSV member of a TAR archive.
type TarReader struct {
	tr   *tar.Reader
	src  io.Closer
	name string
}

// NewTarReader positions the archive on its first regular CSV member.
// Closing the TarReader closes r.
func NewTarReader(r io.ReadCloser) (*TarReader, error) {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.Close()
			return nil, err
		}
		if header.Typeflag == tar.TypeReg && isCSV(header.Name) {
			return &TarReader{tr: tr, src: r, name: header.Name}, nil
		}
	}

	r.Close()
	return nil, fmt.Errorf("tar archive: %w", ErrNoCSV)
}

// Name returns the archive member being read.
func (t *TarReader) Name() string {
	return t.name
}

// Read stops at the end of the current member.
func (t *TarReader) Read(p []byte) (int, error) {
	return t.tr.Read(p)
}

func (t *TarReader) Close() error {
	return t.src.Close()
}
