package audit_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/atlas-audit/internal/audit"
	"github.com/temirov/atlas-audit/internal/utils"
	pathutils "github.com/temirov/atlas-audit/internal/utils/path"
)

const (
	testHomeDirectoryConstant = "/home/auditor"
	testConflictingRootsError = "conflicting project roots"
)

func TestCommandBuilderRunsAudit(testInstance *testing.T) {
	projectRoot := testInstance.TempDir()
	writeFixture(testInstance, projectRoot, testAppEntryPathConstant, testAppEntryContentConstant)

	testCases := []struct {
		name                string
		configuration       audit.CommandConfiguration
		arguments           []string
		expectError         bool
		expectThreshold     bool
		expectedErrorSubstr string
		expectedOutputParts []string
	}{
		{
			name:                "positional_root",
			arguments:           []string{projectRoot, "--color", "never"},
			expectedOutputParts: []string{"Navigation (1/2)", "OVERALL SCORE: 50.0% (1/2 checks passed)"},
		},
		{
			name:                "root_flag",
			arguments:           []string{"--root", projectRoot, "--format", "yaml"},
			expectedOutputParts: []string{"category: Navigation", "score: 50"},
		},
		{
			name:                "configured_root_and_format",
			configuration:       audit.CommandConfiguration{ProjectRoot: projectRoot, Format: "yaml"},
			arguments:           []string{},
			expectedOutputParts: []string{"passed: 1"},
		},
		{
			name:                "flag_overrides_configured_format",
			configuration:       audit.CommandConfiguration{ProjectRoot: projectRoot, Format: "yaml"},
			arguments:           []string{"--format", "TEXT", "--color", "never"},
			expectedOutputParts: []string{"AUDIT RESULTS"},
		},
		{
			name:                "configured_threshold",
			configuration:       audit.CommandConfiguration{FailUnder: 75},
			arguments:           []string{projectRoot, "--color", "never"},
			expectError:         true,
			expectThreshold:     true,
			expectedOutputParts: []string{"FAILED CHECKS:"},
		},
		{
			name:                "flag_threshold_override",
			configuration:       audit.CommandConfiguration{FailUnder: 75},
			arguments:           []string{projectRoot, "--fail-under", "50", "--color", "never"},
			expectedOutputParts: []string{"OVERALL SCORE: 50.0%"},
		},
		{
			name:                "invalid_format_flag",
			arguments:           []string{projectRoot, "--format", "json"},
			expectError:         true,
			expectedErrorSubstr: "json",
		},
		{
			name:                "threshold_out_of_range",
			arguments:           []string{projectRoot, "--fail-under", "101"},
			expectError:         true,
			expectedErrorSubstr: "--fail-under",
		},
		{
			name:                "conflicting_roots",
			arguments:           []string{projectRoot, "--root", filepath.Join(projectRoot, "other")},
			expectError:         true,
			expectedErrorSubstr: testConflictingRootsError,
		},
		{
			name:        "too_many_arguments",
			arguments:   []string{projectRoot, projectRoot},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			builder := audit.CommandBuilder{
				LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
				ConfigurationProvider: func() audit.CommandConfiguration { return testCase.configuration },
				SuiteProvider:         navigationSuiteProvider(testInstance),
			}

			command, buildError := builder.Build()
			require.NoError(testInstance, buildError)

			command.SetContext(context.Background())
			command.SetArgs(testCase.arguments)
			outputBuffer := &strings.Builder{}
			command.SetOut(outputBuffer)
			command.SetErr(&strings.Builder{})
			command.SilenceUsage = true
			command.SilenceErrors = true

			executionError := command.Execute()
			if testCase.expectError {
				require.Error(testInstance, executionError)
				if len(testCase.expectedErrorSubstr) > 0 {
					require.Contains(testInstance, executionError.Error(), testCase.expectedErrorSubstr)
				}
			} else {
				require.NoError(testInstance, executionError)
			}

			var thresholdError audit.ScoreBelowThresholdError
			require.Equal(testInstance, testCase.expectThreshold, errors.As(executionError, &thresholdError))

			for _, expectedPart := range testCase.expectedOutputParts {
				require.Contains(testInstance, outputBuffer.String(), expectedPart)
			}
		})
	}
}

func TestCommandBuilderLogsConfigurationSource(testInstance *testing.T) {
	projectRoot := testInstance.TempDir()
	writeFixture(testInstance, projectRoot, testAppEntryPathConstant, testAppEntryContentConstant)

	testCases := []struct {
		name           string
		contextBuilder func() context.Context
		expectedSource string
	}{
		{
			name: "configuration_file",
			contextBuilder: func() context.Context {
				return utils.NewCommandContextAccessor().WithConfigurationFilePath(context.Background(), "/etc/atlas-audit/config.yaml")
			},
			expectedSource: "/etc/atlas-audit/config.yaml",
		},
		{
			name: "embedded_defaults",
			contextBuilder: func() context.Context {
				return utils.NewCommandContextAccessor().WithConfigurationFilePath(context.Background(), "")
			},
			expectedSource: "embedded defaults",
		},
		{
			name:           "context_without_path",
			contextBuilder: context.Background,
			expectedSource: "embedded defaults",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observedCore, observedLogs := observer.New(zapcore.DebugLevel)
			builder := audit.CommandBuilder{
				LoggerProvider: func() *zap.Logger { return zap.New(observedCore) },
				SuiteProvider:  navigationSuiteProvider(testInstance),
			}

			command, buildError := builder.Build()
			require.NoError(testInstance, buildError)

			command.SetContext(testCase.contextBuilder())
			command.SetArgs([]string{projectRoot, "--color", "never"})
			command.SetOut(&strings.Builder{})
			command.SetErr(&strings.Builder{})
			command.SilenceUsage = true
			command.SilenceErrors = true
			require.NoError(testInstance, command.Execute())

			resolvedEntries := observedLogs.FilterMessage("audit options resolved").All()
			require.Len(testInstance, resolvedEntries, 1)
			require.Equal(testInstance, testCase.expectedSource, resolvedEntries[0].ContextMap()["config_file"])
		})
	}
}

func TestCommandBuilderRequiresSuite(testInstance *testing.T) {
	testCases := []struct {
		name          string
		suiteProvider audit.SuiteProvider
	}{
		{name: "missing_provider"},
		{
			name: "failing_provider",
			suiteProvider: func() (audit.Suite, error) {
				return audit.Suite{}, errors.New("catalog unreadable")
			},
		},
		{
			name: "missing_registry",
			suiteProvider: func() (audit.Suite, error) {
				return audit.Suite{Title: "empty"}, nil
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			builder := audit.CommandBuilder{SuiteProvider: testCase.suiteProvider}
			command, buildError := builder.Build()
			require.NoError(testInstance, buildError)

			command.SetContext(context.Background())
			command.SetArgs([]string{testInstance.TempDir()})
			command.SetOut(&strings.Builder{})
			command.SetErr(&strings.Builder{})
			command.SilenceUsage = true
			command.SilenceErrors = true

			require.Error(testInstance, command.Execute())
		})
	}
}

func TestCommandBuilderExpandsTildeRoots(testInstance *testing.T) {
	var observedRoot string
	builder := audit.CommandBuilder{
		PathSanitizer: pathutils.NewPathSanitizerWithConfiguration(
			pathutils.NewHomeExpanderWithProvider(func() (string, error) { return testHomeDirectoryConstant, nil }),
			pathutils.PathSanitizerConfiguration{},
		),
		SuiteProvider: func() (audit.Suite, error) {
			registry := audit.NewRegistry()
			registerError := registry.Register(rootCapturingGroup{capture: func(root string) { observedRoot = root }})
			return audit.Suite{Registry: registry, Layout: audit.Layout{Sources: map[string]string{"root": "."}}}, registerError
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{"~/atlas", "--color", "never"})
	command.SetOut(&strings.Builder{})
	command.SetErr(&strings.Builder{})

	require.NoError(testInstance, command.Execute())
	require.Equal(testInstance, filepath.Join(testHomeDirectoryConstant, "atlas"), observedRoot)
}

type rootCapturingGroup struct {
	capture func(root string)
}

func (rootCapturingGroup) Name() string {
	return "Root"
}

func (group rootCapturingGroup) Run(session *audit.Session, environment audit.Environment) {
	group.capture(environment.SourcePath("root"))
}

func navigationSuiteProvider(testInstance *testing.T) audit.SuiteProvider {
	return func() (audit.Suite, error) {
		registry := audit.NewRegistry()
		registerError := registry.Register(audit.CheckGroup{
			GroupName: testNavigationGroupNameConstant,
			Category:  testNavigationCategoryConstant,
			Source:    testAppEntryRoleConstant,
			ContentChecks: []audit.ContentCheck{
				{Check: "Has navigation bar configuration", Markers: []string{"UINavigationBarAppearance"}},
				{Check: "Has tab bar configuration", Markers: []string{"UITabBarAppearance"}},
			},
		})
		return audit.Suite{
			Title:    testReportTitleConstant,
			Registry: registry,
			Layout: audit.Layout{
				Sources: map[string]string{testAppEntryRoleConstant: testAppEntryPathConstant},
			},
		}, registerError
	}
}
