package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// File reads every JSON collection matched by a doublestar glob and
// concatenates them in path order.
type File struct {
	pattern string
}

// NewFile returns a File source for pattern, e.g. "data/**/*.json".
func NewFile(pattern string) *File {
	return &File{pattern: filepath.Clean(pattern)}
}

func (f *File) Name() string { return "file:" + f.pattern }

// Pattern returns the cleaned glob.
func (f *File) Pattern() string { return f.pattern }

func (f *File) Fetch(ctx context.Context) ([]quotes.RawRecord, error) {
	paths, err := doublestar.FilepathGlob(f.pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad pattern %s: %v", apperrors.ErrSourceUnavailable, f.pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", apperrors.ErrSourceUnavailable, f.pattern)
	}
	sort.Strings(paths)

	var records []quotes.RawRecord
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readCollection(path)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func readCollection(path string) ([]quotes.RawRecord, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", apperrors.ErrSourceUnavailable, path, err)
	}
	defer fh.Close()
	recs, err := DecodeCollection(fh)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return recs, nil
}
