// Package tokenizer splits request paths into segments.
package tokenizer

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyPath is returned when a path contains no segments at all.
	ErrEmptyPath = errors.New("path has no segments")

	// ErrInvalidSegment is returned when a segment is not valid UTF-8.
	ErrInvalidSegment = errors.New("path segment is not valid UTF-8")
)

// Split returns all non-empty segments of a decoded path. Repeated, leading
// and trailing slashes are ignored, so "//a///b/" yields ["a", "b"].
func Split(path string) ([]string, error) {
	return SplitN(path, -1)
}

// SplitN is like Split but stops scanning once n segments have been
// collected; the rest of the path is never examined. A negative n means no
// limit. Callers that accept at most k segments pass k+1 and treat a result
// of length k+1 as "too many".
func SplitN(path string, n int) ([]string, error) {
	if n == 0 {
		return nil, nil
	}

	var segs []string
	rest := path
	for rest != "" && (n < 0 || len(segs) < n) {
		var seg string
		seg, rest, _ = strings.Cut(rest, "/")
		if seg == "" {
			continue
		}
		if !utf8.ValidString(seg) {
			return nil, ErrInvalidSegment
		}
		segs = append(segs, seg)
	}

	if len(segs) == 0 {
		return nil, ErrEmptyPath
	}
	return segs, nil
}
