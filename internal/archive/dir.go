package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dir archives files on the local filesystem under Root.
type Dir struct {
	Root string
}

// Put writes to a temporary file and renames it into place, so readers never
// see a partial upload.
func (d Dir) Put(ctx context.Context, dir, name string, r io.Reader) error {
	if err := checkName("directory", dir); err != nil {
		return err
	}
	if err := checkName("file name", name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(d.Root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(target, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(target, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Ping checks that Root exists and is a directory.
func (d Dir) Ping(context.Context) error {
	fi, err := os.Stat(d.Root)
	if err != nil {
		return fmt.Errorf("stat archive root: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("archive root %s is not a directory", d.Root)
	}
	return nil
}
