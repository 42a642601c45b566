package audit

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	scanPathPlaceholderConstant = "{path}"
	scanNoMatchLabelConstant    = "none"
	scanPathSeparatorConstant   = "/"
)

// ScanMode selects the predicate a TreeScan applies while walking its roots.
type ScanMode string

// Supported tree scan modes.
const (
	// ScanForbidName fails on the first entry whose base name matches NamePattern.
	ScanForbidName ScanMode = "forbid_name"
	// ScanForbidContent fails on the first file matching NamePattern whose text matches any ContentPatterns.
	ScanForbidContent ScanMode = "forbid_content"
	// ScanRequireName passes once any entry matches NamePattern.
	ScanRequireName ScanMode = "require_name"
)

// TreeScan walks scan roots recursively and summarizes them into a single Result.
//
// NamePattern is a doublestar glob. Patterns without a slash match base names;
// patterns with one match the slash-separated path relative to the scan root.
// RootRoles restricts the walk to the named scan roots; an empty list walks all
// of them. The {path} placeholder in Message is replaced by the first offending
// path, or "none".
type TreeScan struct {
	Check           string
	Mode            ScanMode
	RootRoles       []string
	NamePattern     string
	ContentPatterns []*regexp.Regexp
	Message         string
	Severity        Severity
}

// Evaluate walks the resolved roots and returns exactly one Result.
func (scan TreeScan) Evaluate(category string, environment Environment) Result {
	firstMatch, matched := scan.findFirst(environment)

	passed := !matched
	if scan.Mode == ScanRequireName {
		passed = matched
	}

	reportedPath := scanNoMatchLabelConstant
	if matched {
		reportedPath = firstMatch
	}
	message := strings.ReplaceAll(scan.Message, scanPathPlaceholderConstant, reportedPath)

	return NewResult(category, scan.Check, passed, message, scan.Severity)
}

func (scan TreeScan) findFirst(environment Environment) (string, bool) {
	fileSystem := resolveFileSystem(environment.FileSystem)
	for _, root := range environment.ScanRootPaths(scan.RootRoles) {
		if _, statError := fileSystem.Stat(root); statError != nil {
			continue
		}
		if firstMatch, matched := scan.walkRoot(fileSystem, environment.Contents, root); matched {
			return firstMatch, true
		}
	}
	return "", false
}

func (scan TreeScan) walkRoot(fileSystem FileSystem, contents *ContentCache, root string) (string, bool) {
	firstMatch := ""
	_ = fileSystem.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil || directoryEntry == nil {
			return nil
		}
		if path == root {
			return nil
		}

		nameMatches, patternError := scan.matchesName(root, path, directoryEntry.Name())
		if patternError != nil {
			return fs.SkipAll
		}
		if !nameMatches {
			return nil
		}

		if scan.Mode == ScanForbidContent {
			if directoryEntry.IsDir() {
				return nil
			}
			if !matchAnyPattern(scan.ContentPatterns, scan.readContent(fileSystem, contents, path)) {
				return nil
			}
		}

		firstMatch = path
		return fs.SkipAll
	})
	return firstMatch, len(firstMatch) > 0
}

func (scan TreeScan) matchesName(root string, path string, baseName string) (bool, error) {
	if !strings.Contains(scan.NamePattern, scanPathSeparatorConstant) {
		return doublestar.Match(scan.NamePattern, baseName)
	}
	relativePath, relativeError := filepath.Rel(root, path)
	if relativeError != nil {
		return false, nil
	}
	return doublestar.Match(scan.NamePattern, filepath.ToSlash(relativePath))
}

func (scan TreeScan) readContent(fileSystem FileSystem, contents *ContentCache, path string) string {
	if contents == nil {
		contents = NewContentCache(fileSystem)
	}
	return contents.Read(path)
}
