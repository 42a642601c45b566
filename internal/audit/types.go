package audit

import "strings"

// Severity classifies a failing result. It affects report emphasis only, never scoring.
type Severity string

// Supported severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Normalize maps unknown or empty severities to SeverityError.
func (severity Severity) Normalize() Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(string(severity)))) {
	case SeverityWarning:
		return SeverityWarning
	case SeverityInfo:
		return SeverityInfo
	default:
		return SeverityError
	}
}

// Result describes the outcome of a single check.
type Result struct {
	Category string   `yaml:"category"`
	Check    string   `yaml:"check"`
	Passed   bool     `yaml:"passed"`
	Message  string   `yaml:"message"`
	Severity Severity `yaml:"severity"`
}

// NewResult constructs a Result with a normalized severity.
func NewResult(category string, check string, passed bool, message string, severity Severity) Result {
	return Result{
		Category: category,
		Check:    check,
		Passed:   passed,
		Message:  message,
		Severity: severity.Normalize(),
	}
}

// CategorySummary aggregates the results recorded under one category.
type CategorySummary struct {
	Category string   `yaml:"category"`
	Passed   int      `yaml:"passed"`
	Total    int      `yaml:"total"`
	Results  []Result `yaml:"results"`
}

// Failed returns the number of failing results in the category.
func (summary CategorySummary) Failed() int {
	return summary.Total - summary.Passed
}

// Summary aggregates all results of one audit run.
type Summary struct {
	Categories []CategorySummary `yaml:"categories"`
	Passed     int               `yaml:"passed"`
	Failed     int               `yaml:"failed"`
	Total      int               `yaml:"total"`
	Score      float64           `yaml:"score"`
	Failures   []Result          `yaml:"failures"`
}

// OutputFormat enumerates supported report encodings.
type OutputFormat string

// Supported report formats.
const (
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
)

// ColorMode controls styling of report markers.
type ColorMode string

// Supported color modes.
const (
	ColorModeAuto   ColorMode = "auto"
	ColorModeAlways ColorMode = "always"
	ColorModeNever  ColorMode = "never"
)

// CommandOptions captures the parameters of one audit invocation.
type CommandOptions struct {
	ProjectRoot string
	Format      OutputFormat
	Color       ColorMode
	FailUnder   float64
	Watch       bool
}

// Verdict is the caller-visible outcome of an audit run.
type Verdict struct {
	Summary Summary
	Score   float64
}
