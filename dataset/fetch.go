package dataset

import (
	"archive/tar"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

const (
	// ArchiveURL is the canonical location of the CIFAR-10 binary
	// distribution. Format and content are owned by the provider.
	ArchiveURL = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"

	// archiveMD5 is the checksum published alongside the archive.
	archiveMD5 = "c32a1d4ab5d03f1284b67883e8d87530"

	archiveName    = "cifar-10-binary.tar.gz"
	extractDirName = "cifar-10-batches-bin"
)

// Fetch ensures the extracted CIFAR-10 batch files exist under dir,
// downloading and unpacking the distribution archive on first use. The cache
// is keyed purely on presence; a partial previous extraction must be removed
// by the operator.
func Fetch(dir string) error {
	batchDir := filepath.Join(dir, extractDirName)
	if _, err := os.Stat(filepath.Join(batchDir, testBatchFile)); err == nil {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating dataset cache directory")
	}

	archivePath := filepath.Join(dir, archiveName)
	if err := verifyChecksum(archivePath, archiveMD5); err != nil {
		if err := download(ArchiveURL, archivePath); err != nil {
			return errors.Wrap(err, "downloading dataset archive")
		}
		if err := verifyChecksum(archivePath, archiveMD5); err != nil {
			return errors.Wrap(err, "verifying dataset archive")
		}
	}

	if err := extractArchive(archivePath, dir); err != nil {
		return errors.Wrap(err, "extracting dataset archive")
	}

	if _, err := os.Stat(filepath.Join(batchDir, testBatchFile)); err != nil {
		return errors.Wrap(err, "archive did not contain the expected batch files")
	}
	return nil
}

func download(url, dest string) error {
	log.Printf("Downloading %s", url)

	resp, err := resty.New().SetDoNotParseResponse(true).R().Get(url)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != 200 {
		return errors.Errorf("unexpected status %s from dataset provider", resp.Status())
	}

	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	bar := progressbar.DefaultBytes(resp.RawResponse.ContentLength, archiveName)
	if _, err := io.Copy(io.MultiWriter(f, bar), body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

func verifyChecksum(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if got != want {
		return errors.Errorf("checksum mismatch for %s: got %s, want %s", filepath.Base(path), got, want)
	}
	return nil
}

// extractArchive unpacks a .tar.gz into dir, rejecting entries that would
// escape it.
func extractArchive(path, dir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(dir, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return errors.Errorf("archive entry %q escapes extraction directory", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}
