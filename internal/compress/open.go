package compress

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoCSV = errors.New("no CSV file in archive")

// Member is implemented by readers positioned on an archive member.
type Member interface {
	Name() string
}

// Open returns a reader over CSV content at path. Plain files are returned as is;
// .zip and .tar archives yield their first CSV member and implement Member.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		return NewZipReader(f, info.Size())
	case ".tar":
		return NewTarReader(f)
	default:
		return f, nil
	}
}
