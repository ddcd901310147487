package handlers

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps QR image artifacts on local disk under the configured
// upload directory. The core stores only the returned path; nothing ever
// reads the image bytes back except the image-serving handler.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// SaveQRImage writes the PNG for a code and returns its relative path.
func (fs *FileStore) SaveQRImage(code string, png []byte) (string, error) {
	sub := filepath.Join(fs.dir, "qrcodes")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(sub, code+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// ReadQRImage loads a previously stored artifact.
func (fs *FileStore) ReadQRImage(path string) ([]byte, error) {
	return os.ReadFile(path)
}
