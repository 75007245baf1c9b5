// Package archive stores accepted submission files where downstream
// evaluation picks them up.
package archive

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store uploads one file into a directory of the archive, creating the
// directory when it does not exist yet.
type Store interface {
	Put(ctx context.Context, dir, name string, r io.Reader) error
}

// Pinger is implemented by stores that can check their backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s if it supports it and succeeds otherwise.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// checkName rejects path components that could escape the archive root.
func checkName(kind, s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid archive %s %q", kind, s)
	}
	return nil
}
