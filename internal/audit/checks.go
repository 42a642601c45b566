package audit

import (
	"regexp"
	"strings"
)

const (
	messageStatusSeparatorConstant = " "
)

// MatchMode selects how a ContentCheck evaluates its markers.
type MatchMode string

// Supported content match modes.
const (
	MatchAll   MatchMode = "all"
	MatchAny   MatchMode = "any"
	MatchRegex MatchMode = "regex"
)

// ContentCheck is a predicate over the text of one file.
//
// MatchAll and MatchAny test Markers by substring containment; MatchRegex tests
// Patterns. A check without markers or patterns never passes.
type ContentCheck struct {
	Check         string
	Mode          MatchMode
	Markers       []string
	Patterns      []*regexp.Regexp
	IgnoreCase    bool
	Message       string
	FoundStatus   string
	MissingStatus string
	Severity      Severity
}

// Evaluate runs the predicate against content and returns exactly one Result.
func (check ContentCheck) Evaluate(category string, content string) Result {
	passed := check.Matches(content)
	return NewResult(category, check.Check, passed, check.message(passed), check.Severity)
}

// Matches reports whether content satisfies the check.
func (check ContentCheck) Matches(content string) bool {
	switch check.Mode {
	case MatchRegex:
		return matchAnyPattern(check.Patterns, content)
	case MatchAny:
		return check.containsAny(content)
	default:
		return check.containsAll(content)
	}
}

func (check ContentCheck) containsAll(content string) bool {
	if len(check.Markers) == 0 {
		return false
	}
	for _, marker := range check.Markers {
		if !containsMarker(content, marker, check.IgnoreCase) {
			return false
		}
	}
	return true
}

func (check ContentCheck) containsAny(content string) bool {
	for _, marker := range check.Markers {
		if containsMarker(content, marker, check.IgnoreCase) {
			return true
		}
	}
	return false
}

func (check ContentCheck) message(passed bool) string {
	status := check.MissingStatus
	if passed {
		status = check.FoundStatus
	}
	if len(status) == 0 {
		return check.Message
	}
	if len(check.Message) == 0 {
		return status
	}
	return check.Message + messageStatusSeparatorConstant + status
}

func containsMarker(content string, marker string, ignoreCase bool) bool {
	if ignoreCase {
		return strings.Contains(strings.ToLower(content), strings.ToLower(marker))
	}
	return strings.Contains(content, marker)
}

func matchAnyPattern(patterns []*regexp.Regexp, content string) bool {
	for _, pattern := range patterns {
		if pattern == nil {
			continue
		}
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}
