package audit

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	contentReadErrorTemplateConstant = "unable to read %s: %w"
)

// ErrInvalidEncoding reports file content that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("content is not valid UTF-8")

// ReadOutcome captures a best-effort read. Content is empty whenever Err is set.
type ReadOutcome struct {
	Path    string
	Content string
	Err     error
}

// Missing reports whether the read failed.
func (outcome ReadOutcome) Missing() bool {
	return outcome.Err != nil
}

// ContentCache memoizes file contents for the lifetime of one audit run.
type ContentCache struct {
	fileSystem FileSystem
	outcomes   map[string]ReadOutcome
}

// NewContentCache constructs a cache backed by the provided filesystem.
func NewContentCache(fileSystem FileSystem) *ContentCache {
	return &ContentCache{
		fileSystem: resolveFileSystem(fileSystem),
		outcomes:   make(map[string]ReadOutcome),
	}
}

// Load returns the memoized outcome for path, reading it on first access.
func (cache *ContentCache) Load(path string) ReadOutcome {
	if outcome, cached := cache.outcomes[path]; cached {
		return outcome
	}

	outcome := ReadOutcome{Path: path}
	contentBytes, readError := cache.fileSystem.ReadFile(path)
	switch {
	case readError != nil:
		outcome.Err = fmt.Errorf(contentReadErrorTemplateConstant, path, readError)
	case !utf8.Valid(contentBytes):
		outcome.Err = fmt.Errorf(contentReadErrorTemplateConstant, path, ErrInvalidEncoding)
	default:
		outcome.Content = string(contentBytes)
	}

	cache.outcomes[path] = outcome
	return outcome
}

// Read returns the file text, or an empty string when the file cannot be read or decoded.
func (cache *ContentCache) Read(path string) string {
	return cache.Load(path).Content
}
