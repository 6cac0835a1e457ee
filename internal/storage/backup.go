package storage

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// BackupEntry is one file inside a backup archive.
type BackupEntry struct {
	Name string
	Data []byte
}

// Backup writes entries into a zstd-compressed tar archive in dir and
// returns its path.
func Backup(dir string, now time.Time, entries ...BackupEntry) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	archive := filepath.Join(dir, fmt.Sprintf("timetrack-%s.tar.zst", now.UTC().Format("20060102T150405Z")))
	file, err := os.OpenFile(archive, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(archive)
			path = ""
		}
	}()

	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", fmt.Errorf("creating zstd encoder: %w", err)
	}

	tw := tar.NewWriter(enc)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    0o644,
			Size:    int64(len(e.Data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			_ = enc.Close()
			return "", fmt.Errorf("writing backup header for %s: %w", e.Name, err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			_ = enc.Close()
			return "", fmt.Errorf("writing backup entry %s: %w", e.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		_ = enc.Close()
		return "", fmt.Errorf("finishing backup archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("finishing zstd stream: %w", err)
	}
	return archive, nil
}

// ReadBackup returns the entries of an archive written by Backup.
func ReadBackup(path string) ([]BackupEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()

	var entries []BackupEntry
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading backup: %w", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading backup entry %s: %w", hdr.Name, err)
		}
		entries = append(entries, BackupEntry{Name: hdr.Name, Data: data})
	}
	return entries, nil
}
