package ingest

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaxFileSizeBytes caps a single uploaded document.
const MaxFileSizeBytes = 32 * 1024 * 1024

// File is a raw document as received from an upload or read from disk.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Document is the extracted, UTF-8 text form of a File.
type Document struct {
	Filename    string
	ContentType string
	ContentHash string
	Size        int64
	Text        string
}

// ReadFile loads a document from disk. The content type is detected later.
func ReadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("ingest: stat %q: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("ingest: %q is a directory", path)
	}
	if info.Size() > MaxFileSizeBytes {
		return File{}, fmt.Errorf("ingest: %q exceeds maximum size of %d bytes", path, MaxFileSizeBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("ingest: read %q: %w", path, err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}
