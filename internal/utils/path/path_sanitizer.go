package pathutils

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// PathSanitizerConfiguration controls path sanitization behavior.
type PathSanitizerConfiguration struct {
	// PruneNestedPaths removes paths that are nested within other provided paths.
	PruneNestedPaths bool
}

// PathSanitizer normalizes user-supplied directory paths consistently across commands.
type PathSanitizer struct {
	homeExpander  *HomeExpander
	configuration PathSanitizerConfiguration
}

// NewPathSanitizer constructs a PathSanitizer with default behavior.
func NewPathSanitizer() *PathSanitizer {
	return NewPathSanitizerWithConfiguration(nil, PathSanitizerConfiguration{})
}

// NewPathSanitizerWithConfiguration constructs a PathSanitizer using the provided expander and configuration.
func NewPathSanitizerWithConfiguration(homeExpander *HomeExpander, configuration PathSanitizerConfiguration) *PathSanitizer {
	resolvedExpander := homeExpander
	if resolvedExpander == nil {
		resolvedExpander = NewHomeExpander()
	}

	return &PathSanitizer{
		homeExpander:  resolvedExpander,
		configuration: configuration,
	}
}

// Sanitize trims whitespace, expands the user's home directory, and drops empty values.
func (sanitizer *PathSanitizer) Sanitize(candidatePaths []string) []string {
	if sanitizer == nil {
		return sanitizePathsWithExpander(NewHomeExpander(), PathSanitizerConfiguration{}, candidatePaths)
	}

	return sanitizePathsWithExpander(sanitizer.homeExpander, sanitizer.configuration, candidatePaths)
}

// ResolveRoot expands and absolutizes a single root directory, falling back to fallbackPath when empty.
func (sanitizer *PathSanitizer) ResolveRoot(candidatePath string, fallbackPath string) string {
	sanitized := sanitizer.Sanitize([]string{candidatePath})
	if len(sanitized) == 0 {
		sanitized = sanitizer.Sanitize([]string{fallbackPath})
	}
	if len(sanitized) == 0 {
		return ""
	}
	return canonicalizePath(sanitized[0])
}

func sanitizePathsWithExpander(expander *HomeExpander, configuration PathSanitizerConfiguration, candidatePaths []string) []string {
	sanitizedPaths := make([]string, 0, len(candidatePaths))
	for candidateIndex := range candidatePaths {
		trimmedCandidate := strings.TrimSpace(candidatePaths[candidateIndex])
		if len(trimmedCandidate) == 0 {
			continue
		}

		expandedPath := expander.Expand(trimmedCandidate)
		if len(expandedPath) == 0 {
			continue
		}

		sanitizedPaths = append(sanitizedPaths, expandedPath)
	}

	if len(sanitizedPaths) == 0 {
		return nil
	}

	if configuration.PruneNestedPaths {
		return pruneNestedPaths(sanitizedPaths)
	}

	return sanitizedPaths
}

func pruneNestedPaths(candidatePaths []string) []string {
	type pathDetails struct {
		originalIndex int
		value         string
		canonical     string
		comparison    string
	}

	paths := make([]pathDetails, 0, len(candidatePaths))
	for index := range candidatePaths {
		canonicalPath := canonicalizePath(candidatePaths[index])
		paths = append(paths, pathDetails{
			originalIndex: index,
			value:         candidatePaths[index],
			canonical:     canonicalPath,
			comparison:    comparisonPath(canonicalPath),
		})
	}

	sort.SliceStable(paths, func(first int, second int) bool {
		firstLength := len(paths[first].comparison)
		secondLength := len(paths[second].comparison)
		if firstLength == secondLength {
			return paths[first].comparison < paths[second].comparison
		}
		return firstLength < secondLength
	})

	selected := make([]pathDetails, 0, len(paths))
	for _, candidate := range paths {
		nested := false
		for _, existing := range selected {
			if isNestedPath(existing.canonical, candidate.canonical) {
				nested = true
				break
			}
		}
		if !nested {
			selected = append(selected, candidate)
		}
	}

	sort.SliceStable(selected, func(first int, second int) bool {
		return selected[first].originalIndex < selected[second].originalIndex
	})

	pruned := make([]string, 0, len(selected))
	for _, candidate := range selected {
		pruned = append(pruned, candidate.value)
	}

	return pruned
}

func canonicalizePath(path string) string {
	cleanedPath := filepath.Clean(path)
	absolutePath, absoluteError := filepath.Abs(cleanedPath)
	if absoluteError == nil {
		return filepath.Clean(absolutePath)
	}
	return cleanedPath
}

func comparisonPath(path string) string {
	comparison := filepath.Clean(path)
	if runtime.GOOS == "windows" {
		comparison = strings.ToLower(comparison)
	}
	return comparison
}

// isNestedPath reports whether candidate equals parent or lies beneath it.
func isNestedPath(parent string, candidate string) bool {
	parentClean := comparisonPath(parent)
	candidateClean := comparisonPath(candidate)

	if candidateClean == parentClean {
		return true
	}

	if len(candidateClean) <= len(parentClean) || !strings.HasPrefix(candidateClean, parentClean) {
		return false
	}

	if parentClean[len(parentClean)-1] == os.PathSeparator {
		return true
	}

	return candidateClean[len(parentClean)] == os.PathSeparator
}
