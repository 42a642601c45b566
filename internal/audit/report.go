package audit

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

const (
	reportRuleWidthConstant              = 60
	reportCategoryRuleWidthConstant      = 40
	reportRuleCharacterConstant          = "="
	reportCategoryRuleCharacterConstant  = "-"
	reportResultsHeadingConstant         = "AUDIT RESULTS"
	reportCategoryHeaderTemplateConstant = "%s (%d/%d)"
	reportResultLineTemplateConstant     = "  %s %s"
	reportResultMessageTemplateConstant  = "      → %s"
	reportScoreLineTemplateConstant      = "OVERALL SCORE: %.1f%% (%d/%d checks passed)"
	reportIssuesLineTemplateConstant     = "⚠️  %d issues need to be fixed to reach 100%%"
	reportFailedHeadingConstant          = "FAILED CHECKS:"
	reportFailureLineTemplateConstant    = "  • [%s] %s%s"
	reportFailureMessageTemplateConstant = "    → %s"
	reportSeveritySuffixTemplateConstant = " (%s)"
	reportAllPassedMessageConstant       = "✓ All checks passed! Codebase meets 100% quality standards."
	reportPassMarkerConstant             = "✓"
	reportFailMarkerConstant             = "✗"
	reportLineSeparatorConstant          = "\n"
	reportEncodeErrorTemplateConstant    = "unable to encode audit report: %w"
	reportYAMLIndentConstant             = 2
)

var (
	reportStylePass    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	reportStyleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	reportStyleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	reportStyleHeading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	reportStyleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// TextReporter renders a Summary as the human-readable audit report.
type TextReporter struct {
	title        string
	colorEnabled bool
}

// NewTextReporter constructs a TextReporter. An empty title omits the banner heading.
func NewTextReporter(title string, colorEnabled bool) TextReporter {
	return TextReporter{title: strings.TrimSpace(title), colorEnabled: colorEnabled}
}

// Render formats the summary and returns the report text with the overall score.
func (reporter TextReporter) Render(summary Summary) (string, float64) {
	rule := strings.Repeat(reportRuleCharacterConstant, reportRuleWidthConstant)
	categoryRule := strings.Repeat(reportCategoryRuleCharacterConstant, reportCategoryRuleWidthConstant)

	lines := []string{rule}
	if len(reporter.title) > 0 {
		lines = append(lines, reporter.style(reportStyleHeading, reporter.title))
	}
	lines = append(lines, reporter.style(reportStyleHeading, reportResultsHeadingConstant), rule)

	for _, category := range summary.Categories {
		lines = append(lines,
			"",
			reporter.style(reportStyleHeading, fmt.Sprintf(reportCategoryHeaderTemplateConstant, category.Category, category.Passed, category.Total)),
			categoryRule,
		)
		for _, result := range category.Results {
			lines = append(lines, fmt.Sprintf(reportResultLineTemplateConstant, reporter.marker(result), result.Check))
			if !result.Passed {
				lines = append(lines, reporter.style(reportStyleDim, fmt.Sprintf(reportResultMessageTemplateConstant, result.Message)))
			}
		}
	}

	lines = append(lines,
		"",
		rule,
		fmt.Sprintf(reportScoreLineTemplateConstant, summary.Score, summary.Passed, summary.Total),
		rule,
	)

	if summary.Failed > 0 {
		lines = append(lines,
			"",
			reporter.style(reportStyleWarn, fmt.Sprintf(reportIssuesLineTemplateConstant, summary.Failed)),
			"",
			reportFailedHeadingConstant,
		)
		for _, failure := range summary.Failures {
			lines = append(lines,
				fmt.Sprintf(reportFailureLineTemplateConstant, failure.Category, failure.Check, severitySuffix(failure.Severity)),
				fmt.Sprintf(reportFailureMessageTemplateConstant, failure.Message),
			)
		}
	} else {
		lines = append(lines, "", reporter.style(reportStylePass, reportAllPassedMessageConstant))
	}

	return strings.Join(lines, reportLineSeparatorConstant) + reportLineSeparatorConstant, summary.Score
}

func (reporter TextReporter) marker(result Result) string {
	if result.Passed {
		return reporter.style(reportStylePass, reportPassMarkerConstant)
	}
	if result.Severity.Normalize() == SeverityError {
		return reporter.style(reportStyleFail, reportFailMarkerConstant)
	}
	return reporter.style(reportStyleWarn, reportFailMarkerConstant)
}

func (reporter TextReporter) style(style lipgloss.Style, text string) string {
	if !reporter.colorEnabled {
		return text
	}
	return style.Render(text)
}

func severitySuffix(severity Severity) string {
	normalized := severity.Normalize()
	if normalized == SeverityError {
		return ""
	}
	return fmt.Sprintf(reportSeveritySuffixTemplateConstant, normalized)
}

// StructuredReporter writes a Summary as a YAML document.
type StructuredReporter struct{}

// Write encodes the summary to writer.
func (StructuredReporter) Write(writer io.Writer, summary Summary) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(reportYAMLIndentConstant)
	if encodeError := encoder.Encode(summary); encodeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplateConstant, closeError)
	}
	return nil
}
