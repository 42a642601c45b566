package audit

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/atlas-audit/internal/utils"
	"github.com/temirov/atlas-audit/internal/utils/flags"
	pathutils "github.com/temirov/atlas-audit/internal/utils/path"
)

const (
	commandNameConstant                      = "audit"
	commandUsageConstant                     = "audit [project-root]"
	commandShortDescriptionConstant          = "Audit an Insight Atlas project tree"
	commandLongDescriptionConstant           = "audit runs every registered check group against the project tree, prints a scored report, and optionally re-runs on file changes."
	flagRootNameConstant                     = "root"
	flagRootDescriptionConstant              = "Project root to audit (defaults to the configured project_root)"
	flagFormatNameConstant                   = "format"
	flagFormatDescriptionConstant            = "Report format."
	flagColorNameConstant                    = "color"
	flagColorDescriptionConstant             = "Colorize the text report."
	flagFailUnderNameConstant                = "fail-under"
	flagFailUnderDescriptionConstant         = "Exit with an error when the score is below this percentage (0 disables)"
	flagWatchNameConstant                    = "watch"
	flagWatchDescriptionConstant             = "Re-run the audit whenever files under the project change"
	conflictingRootsErrorTemplateConstant    = "conflicting project roots: argument %q and --root %q"
	suiteUnavailableMessageConstant          = "no audit suite configured"
	suiteLoadErrorTemplateConstant           = "unable to load audit suite: %w"
	failUnderRangeErrorTemplateConstant      = "--fail-under must be between 0 and 100, got %.1f"
	maximumScoreConstant                     = 100.0
	commandOptionsResolvedLogMessageConstant = "audit options resolved"
	logFieldFormatConstant                   = "format"
	logFieldColorConstant                    = "color"
	logFieldFailUnderConstant                = "fail_under"
	logFieldWatchConstant                    = "watch"
	logFieldConfigurationFileConstant        = "config_file"
	embeddedConfigurationLabelConstant       = "embedded defaults"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the persisted audit command configuration.
type ConfigurationProvider func() CommandConfiguration

// SuiteProvider supplies the check groups and project layout to audit.
type SuiteProvider func() (Suite, error)

// ObserverProvider supplies the group progress observer for a run.
type ObserverProvider func() GroupEventObserver

// CommandBuilder assembles the audit cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	SuiteProvider         SuiteProvider
	ObserverProvider      ObserverProvider
	FileSystem            FileSystem
	PathSanitizer         *pathutils.PathSanitizer
}

// Build constructs the cobra command for the audit workflow.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUsageConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	formatChoices := []string{string(OutputFormatText), string(OutputFormatYAML)}
	colorChoices := []string{string(ColorModeAuto), string(ColorModeAlways), string(ColorModeNever)}

	command.Flags().String(flagRootNameConstant, "", flagRootDescriptionConstant)
	command.Flags().Var(flags.NewChoiceValue(string(OutputFormatText), formatChoices), flagFormatNameConstant, flags.FormatChoiceUsage(string(OutputFormatText), formatChoices, flagFormatDescriptionConstant))
	command.Flags().Var(flags.NewChoiceValue(string(ColorModeAuto), colorChoices), flagColorNameConstant, flags.FormatChoiceUsage(string(ColorModeAuto), colorChoices, flagColorDescriptionConstant))
	command.Flags().Float64(flagFailUnderNameConstant, 0, flagFailUnderDescriptionConstant)
	command.Flags().Bool(flagWatchNameConstant, false, flagWatchDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	options, optionsError := builder.parseOptions(command, arguments, configuration)
	if optionsError != nil {
		return optionsError
	}

	suite, suiteError := builder.resolveSuite()
	if suiteError != nil {
		return suiteError
	}

	logger := builder.resolveLogger()
	logger.Debug(
		commandOptionsResolvedLogMessageConstant,
		zap.String(logFieldProjectRootConstant, options.ProjectRoot),
		zap.String(logFieldFormatConstant, string(options.Format)),
		zap.String(logFieldColorConstant, string(options.Color)),
		zap.Float64(logFieldFailUnderConstant, options.FailUnder),
		zap.Bool(logFieldWatchConstant, options.Watch),
		zap.String(logFieldConfigurationFileConstant, configurationSource(command)),
	)

	service := NewService(ServiceDependencies{
		Registry:    suite.Registry,
		Layout:      suite.Layout.WithOverrides(configuration),
		ReportTitle: suite.Title,
		FileSystem:  builder.FileSystem,
		Observer:    builder.resolveObserver(),
		Logger:      logger,
		Output:      utils.NewFlushingWriter(command.OutOrStdout()),
	})

	if options.Watch {
		return service.Watch(command.Context(), options, configuration.WatchDebounce)
	}
	_, runError := service.Run(command.Context(), options)
	return runError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, configuration CommandConfiguration) (CommandOptions, error) {
	options := CommandOptions{
		ProjectRoot: configuration.ProjectRoot,
		Format:      OutputFormat(configuration.Format),
		Color:       ColorMode(configuration.Color),
		FailUnder:   configuration.FailUnder,
	}

	rootFlagValue, _ := command.Flags().GetString(flagRootNameConstant)
	rootFlagValue = strings.TrimSpace(rootFlagValue)
	argumentRoot := ""
	if len(arguments) > 0 {
		argumentRoot = strings.TrimSpace(arguments[0])
	}
	switch {
	case len(argumentRoot) > 0 && len(rootFlagValue) > 0 && argumentRoot != rootFlagValue:
		return CommandOptions{}, fmt.Errorf(conflictingRootsErrorTemplateConstant, argumentRoot, rootFlagValue)
	case len(argumentRoot) > 0:
		options.ProjectRoot = argumentRoot
	case len(rootFlagValue) > 0:
		options.ProjectRoot = rootFlagValue
	}
	options.ProjectRoot = builder.resolvePathSanitizer().ResolveRoot(options.ProjectRoot, defaultProjectRootConstant)

	if command.Flags().Changed(flagFormatNameConstant) {
		options.Format = OutputFormat(command.Flags().Lookup(flagFormatNameConstant).Value.String())
	}
	if command.Flags().Changed(flagColorNameConstant) {
		options.Color = ColorMode(command.Flags().Lookup(flagColorNameConstant).Value.String())
	}
	if command.Flags().Changed(flagFailUnderNameConstant) {
		options.FailUnder, _ = command.Flags().GetFloat64(flagFailUnderNameConstant)
	}
	if options.FailUnder < 0 || options.FailUnder > maximumScoreConstant {
		return CommandOptions{}, fmt.Errorf(failUnderRangeErrorTemplateConstant, options.FailUnder)
	}
	options.Watch, _ = command.Flags().GetBool(flagWatchNameConstant)

	if _, formatError := resolveFormat(options.Format); formatError != nil {
		return CommandOptions{}, formatError
	}
	if _, colorError := resolveColor(options.Color, io.Discard); colorError != nil {
		return CommandOptions{}, colorError
	}

	return options, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func configurationSource(command *cobra.Command) string {
	configurationFilePath, available := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	if !available {
		return embeddedConfigurationLabelConstant
	}
	return configurationFilePath
}

func (builder *CommandBuilder) resolveSuite() (Suite, error) {
	if builder.SuiteProvider == nil {
		return Suite{}, errors.New(suiteUnavailableMessageConstant)
	}
	suite, suiteError := builder.SuiteProvider()
	if suiteError != nil {
		return Suite{}, fmt.Errorf(suiteLoadErrorTemplateConstant, suiteError)
	}
	if suite.Registry == nil {
		return Suite{}, errors.New(suiteUnavailableMessageConstant)
	}
	return suite, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveObserver() GroupEventObserver {
	if builder.ObserverProvider == nil {
		return nil
	}
	return builder.ObserverProvider()
}

func (builder *CommandBuilder) resolvePathSanitizer() *pathutils.PathSanitizer {
	if builder.PathSanitizer != nil {
		return builder.PathSanitizer
	}
	return pathutils.NewPathSanitizer()
}
