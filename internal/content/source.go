// Package content resolves fragment identifiers to HTML for the shell.
package content

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"pkt.systems/qult/schema"
)

//go:embed fragments/*.html
var embedded embed.FS

var validID = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// FileName maps a fragment id to its file name.
func FileName(id string) string {
	return id + ".html"
}

// ValidID reports whether id is a well-formed fragment identifier.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// FSSource serves fragments from a file system.
type FSSource struct {
	fsys fs.FS
}

// NewFS returns a source reading <id>.html files from fsys.
func NewFS(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Embedded returns the built-in fragments.
func Embedded() *FSSource {
	sub, err := fs.Sub(embedded, "fragments")
	if err != nil {
		panic(err)
	}
	return NewFS(sub)
}

// Dir returns a source reading fragments from a directory.
func Dir(path string) (*FSSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", path)
	}
	return NewFS(os.DirFS(path)), nil
}

// Fetch implements core.ContentSource.
func (s *FSSource) Fetch(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrFetch, err)
	}
	if !ValidID(id) {
		return "", fmt.Errorf("fragment %q: %w", id, schema.ErrNotFound)
	}
	data, err := fs.ReadFile(s.fsys, FileName(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("fragment %q: %w", id, schema.ErrNotFound)
		}
		return "", fmt.Errorf("%w: fragment %q: %v", schema.ErrFetch, id, err)
	}
	return string(data), nil
}

// Kind selects a content source implementation.
type Kind string

const (
	KindEmbedded Kind = "embedded"
	KindDir      Kind = "dir"
	KindHTTP     Kind = "http"
)

// Config selects and configures a content source.
type Config struct {
	Source   Kind
	Dir      string
	BaseURL  string
	Timeout  time.Duration
	Sanitize bool
}

// Source is what the shell needs from a content backend.
type Source interface {
	Fetch(ctx context.Context, id string) (string, error)
}

// Open builds the source described by cfg.
func Open(cfg Config) (Source, error) {
	switch cfg.Source {
	case "", KindEmbedded:
		return Embedded(), nil
	case KindDir:
		if cfg.Dir == "" {
			return nil, errors.New("content.dir is required for the dir source")
		}
		return Dir(cfg.Dir)
	case KindHTTP:
		return NewHTTP(HTTPConfig{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout, Sanitize: cfg.Sanitize})
	default:
		return nil, fmt.Errorf("unknown content source %q", cfg.Source)
	}
}
