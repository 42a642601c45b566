package audit_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/temirov/atlas-audit/internal/audit"
)

const (
	testNavigationGroupNameConstant = "Navigation & Styling"
	testNavigationCategoryConstant  = "Navigation"
	testAppEntryRoleConstant        = "app_entry"
	testAppEntryPathConstant        = "InsightAtlas/InsightAtlasApp.swift"
	testAppEntryContentConstant     = "let appearance = UINavigationBarAppearance()\n"
	testANSIEscapeConstant          = "\x1b["
)

func TestServiceRun(testInstance *testing.T) {
	testCases := []struct {
		name                string
		options             audit.CommandOptions
		expectedScore       float64
		expectThreshold     bool
		expectError         bool
		expectedOutputParts []string
	}{
		{
			name:                "text_report",
			options:             audit.CommandOptions{Format: audit.OutputFormatText, Color: audit.ColorModeNever},
			expectedScore:       50,
			expectedOutputParts: []string{testReportTitleConstant, "OVERALL SCORE: 50.0% (1/2 checks passed)", "  • [Navigation] Has tab bar configuration"},
		},
		{
			name:                "yaml_report",
			options:             audit.CommandOptions{Format: audit.OutputFormatYAML},
			expectedScore:       50,
			expectedOutputParts: []string{"category: Navigation", "score: 50"},
		},
		{
			name:                "threshold_met",
			options:             audit.CommandOptions{FailUnder: 50},
			expectedScore:       50,
			expectedOutputParts: []string{"OVERALL SCORE: 50.0%"},
		},
		{
			name:                "threshold_breached",
			options:             audit.CommandOptions{FailUnder: 90},
			expectedScore:       50,
			expectThreshold:     true,
			expectError:         true,
			expectedOutputParts: []string{"OVERALL SCORE: 50.0%"},
		},
		{
			name:        "unsupported_format",
			options:     audit.CommandOptions{Format: audit.OutputFormat("json")},
			expectError: true,
		},
		{
			name:        "unsupported_color",
			options:     audit.CommandOptions{Color: audit.ColorMode("sometimes")},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			projectRoot := testInstance.TempDir()
			writeFixture(testInstance, projectRoot, testAppEntryPathConstant, testAppEntryContentConstant)

			outputBuffer := &bytes.Buffer{}
			service := newNavigationService(testInstance, outputBuffer, nil)

			options := testCase.options
			options.ProjectRoot = projectRoot
			verdict, runError := service.Run(context.Background(), options)

			if testCase.expectError {
				require.Error(testInstance, runError)
			} else {
				require.NoError(testInstance, runError)
			}

			var thresholdError audit.ScoreBelowThresholdError
			require.Equal(testInstance, testCase.expectThreshold, errors.As(runError, &thresholdError))
			if testCase.expectThreshold {
				require.InDelta(testInstance, testCase.options.FailUnder, thresholdError.Threshold, 1e-9)
				require.Equal(testInstance, "audit score 50.0% is below the required 90.0%", runError.Error())
			}

			if len(testCase.expectedOutputParts) == 0 {
				require.Empty(testInstance, outputBuffer.String())
				return
			}
			require.InDelta(testInstance, testCase.expectedScore, verdict.Score, 1e-9)
			for _, expectedPart := range testCase.expectedOutputParts {
				require.Contains(testInstance, outputBuffer.String(), expectedPart)
			}
		})
	}
}

func TestServiceRunHonorsCancellation(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	service := newNavigationService(testInstance, outputBuffer, nil)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, runError := service.Run(cancelledContext, audit.CommandOptions{ProjectRoot: testInstance.TempDir()})
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Empty(testInstance, outputBuffer.String())
}

func TestServiceRunAutoColorOnNonTerminal(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	service := newNavigationService(testInstance, outputBuffer, nil)

	_, runError := service.Run(context.Background(), audit.CommandOptions{ProjectRoot: testInstance.TempDir(), Color: audit.ColorModeAuto})
	require.NoError(testInstance, runError)
	require.NotContains(testInstance, outputBuffer.String(), testANSIEscapeConstant)
}

func TestServiceAuditUsesFreshStatePerRun(testInstance *testing.T) {
	projectRoot := testInstance.TempDir()
	service := newNavigationService(testInstance, nil, nil)

	firstSummary := service.Audit(projectRoot)
	require.Equal(testInstance, 0, firstSummary.Passed)

	writeFixture(testInstance, projectRoot, testAppEntryPathConstant, testAppEntryContentConstant)
	secondSummary := service.Audit(projectRoot)
	require.Equal(testInstance, 1, secondSummary.Passed)
	require.Equal(testInstance, firstSummary.Total, secondSummary.Total)
}

func TestServiceAuditLogsLifecycle(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zapcore.InfoLevel)
	service := newNavigationService(testInstance, nil, zap.New(observerCore))

	summary := service.Audit(testInstance.TempDir())
	require.Equal(testInstance, 2, summary.Total)

	messages := make([]string, 0, observedLogs.Len())
	for _, entry := range observedLogs.All() {
		messages = append(messages, entry.Message)
	}
	require.Equal(testInstance, []string{"audit started", "audit completed"}, messages)
}

func TestLayoutWithOverrides(testInstance *testing.T) {
	layout := audit.Layout{
		Sources:   map[string]string{testAppEntryRoleConstant: testAppEntryPathConstant, "style": "Style.swift"},
		ScanRoots: []audit.ScanRoot{{Role: testSourceRoleConstant, Path: testSourceRootConstant}},
	}

	unchanged := layout.WithOverrides(audit.CommandConfiguration{})
	require.Equal(testInstance, layout.Sources, unchanged.Sources)
	require.Equal(testInstance, layout.ScanRoots, unchanged.ScanRoots)

	overridden := layout.WithOverrides(audit.CommandConfiguration{
		Sources:   map[string]string{"style": "Theme/Style.swift"},
		ScanRoots: []audit.ScanRootConfiguration{{Role: testTestsRoleConstant, Path: "Tests"}},
	})
	require.Equal(testInstance, "Theme/Style.swift", overridden.Sources["style"])
	require.Equal(testInstance, testAppEntryPathConstant, overridden.Sources[testAppEntryRoleConstant])
	require.Equal(testInstance, []audit.ScanRoot{{Role: testTestsRoleConstant, Path: "Tests"}}, overridden.ScanRoots)
	require.Equal(testInstance, "Style.swift", layout.Sources["style"])
}

func TestStructuredReportDecodes(testInstance *testing.T) {
	projectRoot := testInstance.TempDir()
	writeFixture(testInstance, projectRoot, testAppEntryPathConstant, testAppEntryContentConstant)

	outputBuffer := &bytes.Buffer{}
	service := newNavigationService(testInstance, outputBuffer, nil)
	_, runError := service.Run(context.Background(), audit.CommandOptions{ProjectRoot: projectRoot, Format: audit.OutputFormatYAML})
	require.NoError(testInstance, runError)

	decoded := audit.Summary{}
	require.NoError(testInstance, yaml.NewDecoder(strings.NewReader(outputBuffer.String())).Decode(&decoded))
	require.Equal(testInstance, 1, decoded.Passed)
	require.Len(testInstance, decoded.Failures, 1)
}

func newNavigationService(testInstance *testing.T, output *bytes.Buffer, logger *zap.Logger) *audit.Service {
	testInstance.Helper()
	registry := audit.NewRegistry()
	require.NoError(testInstance, registry.Register(audit.CheckGroup{
		GroupName: testNavigationGroupNameConstant,
		Category:  testNavigationCategoryConstant,
		Source:    testAppEntryRoleConstant,
		ContentChecks: []audit.ContentCheck{
			{Check: "Has navigation bar configuration", Markers: []string{"UINavigationBarAppearance"}, Message: "UINavigationBarAppearance setup"},
			{Check: "Has tab bar configuration", Markers: []string{"UITabBarAppearance"}, Message: "UITabBarAppearance setup"},
		},
	}))

	dependencies := audit.ServiceDependencies{
		Registry: registry,
		Layout: audit.Layout{
			Sources:   map[string]string{testAppEntryRoleConstant: testAppEntryPathConstant},
			ScanRoots: []audit.ScanRoot{{Role: testSourceRoleConstant, Path: testSourceRootConstant}},
		},
		ReportTitle: testReportTitleConstant,
		Logger:      logger,
	}
	if output != nil {
		dependencies.Output = output
	}
	return audit.NewService(dependencies)
}

type summaryRecordingReporter struct {
	summaries []audit.Summary
}

func (reporter *summaryRecordingReporter) Render(summary audit.Summary) (string, float64) {
	reporter.summaries = append(reporter.summaries, summary)
	return "custom report\n", 25
}

func TestServiceRunUsesConfiguredReporter(testInstance *testing.T) {
	testCases := []struct {
		name             string
		format           audit.OutputFormat
		expectedOutput   string
		expectedRenders  int
		expectThreshold  bool
		expectedVerdict  float64
		expectedContains string
	}{
		{
			name:            "text_format_uses_reporter_score",
			format:          audit.OutputFormatText,
			expectedOutput:  "custom report\n",
			expectedRenders: 1,
			expectThreshold: true,
			expectedVerdict: 25,
		},
		{
			name:             "yaml_format_bypasses_reporter",
			format:           audit.OutputFormatYAML,
			expectedRenders:  0,
			expectedVerdict:  50,
			expectedContains: "score: 50",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			projectRoot := testInstance.TempDir()
			writeFixture(testInstance, projectRoot, testAppEntryPathConstant, testAppEntryContentConstant)

			registry := audit.NewRegistry()
			require.NoError(testInstance, registry.Register(audit.CheckGroup{
				GroupName: testNavigationGroupNameConstant,
				Category:  testNavigationCategoryConstant,
				Source:    testAppEntryRoleConstant,
				ContentChecks: []audit.ContentCheck{
					{Check: "Has navigation bar configuration", Markers: []string{"UINavigationBarAppearance"}},
					{Check: "Has tab bar configuration", Markers: []string{"UITabBarAppearance"}},
				},
			}))

			reporter := &summaryRecordingReporter{}
			outputBuffer := &bytes.Buffer{}
			service := audit.NewService(audit.ServiceDependencies{
				Registry: registry,
				Layout:   audit.Layout{Sources: map[string]string{testAppEntryRoleConstant: testAppEntryPathConstant}},
				Output:   outputBuffer,
				Reporter: reporter,
			})

			verdict, runError := service.Run(context.Background(), audit.CommandOptions{ProjectRoot: projectRoot, Format: testCase.format, FailUnder: 40})

			var thresholdError audit.ScoreBelowThresholdError
			require.Equal(testInstance, testCase.expectThreshold, errors.As(runError, &thresholdError))
			if !testCase.expectThreshold {
				require.NoError(testInstance, runError)
			}
			require.InDelta(testInstance, testCase.expectedVerdict, verdict.Score, 1e-9)
			require.Len(testInstance, reporter.summaries, testCase.expectedRenders)
			if testCase.expectedRenders > 0 {
				require.Equal(testInstance, 2, reporter.summaries[0].Total)
				require.Equal(testInstance, testCase.expectedOutput, outputBuffer.String())
			}
			if len(testCase.expectedContains) > 0 {
				require.Contains(testInstance, outputBuffer.String(), testCase.expectedContains)
			}
		})
	}
}
