// Package naming derives fragment and intermediate object names from a
// destination path.
//
// Chunk artifacts live in a sibling "chunks" namespace under the first
// directory of the destination path:
//
//	data/2024/report.csv -> data/chunks/2024/report/report_<id>
//	                        data/chunks/2024/report/compose/report_<id>
//
// Every generated name carries a fresh random suffix, so concurrent or
// retried transfers to the same destination never collide.
package naming

import (
	"path"
	"strings"

	"github.com/google/uuid"

	xferrors "github.com/input-output-hk/blobxfer/errors"
)

const (
	chunksDir  = "chunks"
	composeDir = "compose"
)

// Scheme generates fragment names for one destination path.
type Scheme struct {
	// Root is the first directory segment of the destination path, or "" when the path has no parent
	Root string

	// SubPath holds the remaining directory segments, joined with "/"
	SubPath string

	// Stem is the file name without its last extension
	Stem string

	// Path is the normalised destination path
	Path string

	newID func() string
}

// Option configures a Scheme.
type Option func(*Scheme)

// WithIDGenerator replaces the random suffix generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scheme) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Parse splits a POSIX destination path into its naming parts.
func Parse(p string, opts ...Option) (*Scheme, error) {
	const op = "naming.Parse"

	if p == "" {
		return nil, xferrors.Configuration(op, "destination path is empty")
	}
	if strings.HasSuffix(p, "/") {
		return nil, xferrors.Configuration(op, "destination path must name an object").WithObject(p)
	}

	var segments []string
	for _, seg := range strings.Split(strings.TrimLeft(p, "/"), "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return nil, xferrors.Configuration(op, "destination path contains relative segments").WithObject(p)
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return nil, xferrors.Configuration(op, "destination path is empty").WithObject(p)
	}

	file := segments[len(segments)-1]
	dirs := segments[:len(segments)-1]

	s := &Scheme{
		Stem:  stem(file),
		Path:  strings.Join(segments, "/"),
		newID: uuid.NewString,
	}
	if len(dirs) > 0 {
		s.Root = dirs[0]
		s.SubPath = strings.Join(dirs[1:], "/")
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Prefix returns the directory holding every fragment of this destination.
func (s *Scheme) Prefix() string {
	// path.Join drops empty elements, so a missing Root or SubPath leaves no dangling separator
	return path.Join(s.Root, chunksDir, s.SubPath, s.Stem)
}

// FragmentName returns a fresh name for an uploaded chunk.
func (s *Scheme) FragmentName() string {
	return path.Join(s.Prefix(), s.Stem+"_"+s.newID())
}

// ComposeName returns a fresh name for an intermediate compose result.
func (s *Scheme) ComposeName() string {
	return path.Join(s.Prefix(), composeDir, s.Stem+"_"+s.newID())
}

func stem(file string) string {
	ext := path.Ext(file)
	if ext == file {
		// dotfile such as ".env"
		return file
	}
	return strings.TrimSuffix(file, ext)
}
