// Package storage implements the public disk: files written under a root
// directory and served back under APP_URL/storage.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("storage: path escapes the disk root")

// Disk stores files below Root, addressed by slash-separated relative paths
type Disk struct {
	Root    string
	BaseURL string
}

func NewDisk(root, baseURL string) *Disk {
	return &Disk{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Disk) resolve(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(name, "\\") {
		return "", ErrInvalidPath
	}
	return filepath.Join(d.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes r to name, creating parent directories as needed
func (d *Disk) Put(name string, r io.Reader) error {
	full, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return f.Close()
}

// Exists reports whether name is a stored file
func (d *Disk) Exists(name string) bool {
	full, err := d.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Delete removes name. Deleting a missing file is not an error.
func (d *Disk) Delete(name string) error {
	full, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL is the public address of name
func (d *Disk) URL(name string) string {
	return d.BaseURL + "/" + strings.TrimPrefix(path.Clean("/"+name), "/")
}
