package dataset

import (
	"archive/tar"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	content := []byte("not a real archive")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	sum := md5.Sum(content)
	assert.NoError(t, verifyChecksum(path, hex.EncodeToString(sum[:])))
	assert.ErrorContains(t, verifyChecksum(path, archiveMD5), "checksum mismatch")
	assert.Error(t, verifyChecksum(filepath.Join(dir, "missing"), archiveMD5))
}

func writeTarGz(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, data := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(data)),
		}))
		_, err := tw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.tar.gz")
	writeTarGz(t, archive, map[string][]byte{
		extractDirName + "/" + testBatchFile: {1, 2, 3},
		extractDirName + "/batches.meta.txt": []byte("airplane\n"),
	})

	out := t.TempDir()
	require.NoError(t, extractArchive(archive, out))

	data, err := os.ReadFile(filepath.Join(out, extractDirName, testBatchFile))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestExtractArchiveRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, archive, map[string][]byte{
		"../escape.bin": {0},
	})

	err := extractArchive(archive, t.TempDir())
	assert.ErrorContains(t, err, "escapes extraction directory")
}

func TestFetchUsesExistingExtraction(t *testing.T) {
	dir := t.TempDir()
	batchDir := filepath.Join(dir, extractDirName)
	require.NoError(t, os.MkdirAll(batchDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(batchDir, testBatchFile), []byte{0}, 0o644))

	// Present cache short-circuits before any network access.
	assert.NoError(t, Fetch(dir))
}
