package compress

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = "shop_id,shop_name\n4,Shop four\n"

type memArchive struct {
	*bytes.Reader
}

func (memArchive) Close() error { return nil }

func writeZip(t *testing.T, path string, members map[string]string, order []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(members[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeTar(t *testing.T, path string, members map[string]string, order []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	tw := tar.NewWriter(f)
	for _, name := range order {
		body := members[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o600,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func readAll(t *testing.T, path string) string {
	t.Helper()
	rc, err := Open(path)
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestOpenPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shops.csv")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	assert.Equal(t, payload, readAll(t, path))
}

func TestOpenZipSkipsNonCSVMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shops.zip")
	writeZip(t, path, map[string]string{
		"README.txt":     "not data",
		"data/shops.CSV": payload,
	}, []string{"README.txt", "data/shops.CSV"})

	assert.Equal(t, payload, readAll(t, path))

	rc, err := Open(path)
	require.NoError(t, err)
	defer rc.Close()
	m, ok := rc.(Member)
	require.True(t, ok)
	assert.Equal(t, "data/shops.CSV", m.Name())
}

func TestOpenCorruptZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := Open(path)
	assert.ErrorIs(t, err, zip.ErrFormat)
}

func TestOpenTarReadsFirstCSVOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shops.tar")
	writeTar(t, path, map[string]string{
		"notes.md":   "skip",
		"shops.csv":  payload,
		"second.csv": "other",
	}, []string{"notes.md", "shops.csv", "second.csv"})

	assert.Equal(t, payload, readAll(t, path))

	rc, err := Open(path)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "shops.csv", rc.(Member).Name())
}

func TestOpenArchiveWithoutCSV(t *testing.T) {
	dir := t.TempDir()

	zipPath := filepath.Join(dir, "empty.zip")
	writeZip(t, zipPath, map[string]string{"a.txt": "x"}, []string{"a.txt"})
	_, err := Open(zipPath)
	assert.ErrorIs(t, err, ErrNoCSV)

	tarPath := filepath.Join(dir, "empty.tar")
	writeTar(t, tarPath, map[string]string{"a.txt": "x"}, []string{"a.txt"})
	_, err = Open(tarPath)
	assert.ErrorIs(t, err, ErrNoCSV)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestZipWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	zw, err := NewZipWriter(&buf, "forecast.csv")
	require.NoError(t, err)
	_, err = zw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := NewZipReader(memArchive{bytes.NewReader(buf.Bytes())}, int64(buf.Len()))
	require.NoError(t, err)
	defer zr.Close()

	assert.Equal(t, "forecast.csv", zr.Name())
	b, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(b))
}
