package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

const (
	unsupportedFormatTemplateConstant    = "unsupported report format: %s"
	unsupportedColorModeTemplateConstant = "unsupported color mode: %s"
	reportWriteErrorTemplateConstant     = "unable to write audit report: %w"
	scoreBelowThresholdTemplateConstant  = "audit score %.1f%% is below the required %.1f%%"
	auditStartedLogMessageConstant       = "audit started"
	auditCompletedLogMessageConstant     = "audit completed"
	logFieldProjectRootConstant          = "project_root"
	logFieldScoreConstant                = "score"
	logFieldPassedConstant               = "passed"
	logFieldTotalConstant                = "total"
	logFieldGroupCountConstant           = "groups"
)

// ScoreBelowThresholdError reports an audit score under the configured minimum.
type ScoreBelowThresholdError struct {
	Score     float64
	Threshold float64
}

// Error describes the threshold breach.
func (thresholdError ScoreBelowThresholdError) Error() string {
	return fmt.Sprintf(scoreBelowThresholdTemplateConstant, thresholdError.Score, thresholdError.Threshold)
}

// Layout maps source roles and scan roots to paths relative to the project root.
type Layout struct {
	Sources   map[string]string
	ScanRoots []ScanRoot
}

// WithOverrides returns a copy of the layout with configured sources and scan roots applied.
func (layout Layout) WithOverrides(configuration CommandConfiguration) Layout {
	merged := Layout{Sources: make(map[string]string, len(layout.Sources)+len(configuration.Sources))}
	for role, path := range layout.Sources {
		merged.Sources[role] = path
	}
	for role, path := range configuration.Sources {
		merged.Sources[role] = path
	}

	if len(configuration.ScanRoots) == 0 {
		merged.ScanRoots = append([]ScanRoot{}, layout.ScanRoots...)
		return merged
	}
	for _, scanRoot := range configuration.ScanRoots {
		merged.ScanRoots = append(merged.ScanRoots, ScanRoot{Role: scanRoot.Role, Path: scanRoot.Path})
	}
	return merged
}

// ServiceDependencies configures the collaborators of a Service. A nil Reporter renders the
// text format with a TextReporter titled ReportTitle.
type ServiceDependencies struct {
	Registry    *Registry
	Layout      Layout
	ReportTitle string
	FileSystem  FileSystem
	Observer    GroupEventObserver
	Logger      *zap.Logger
	Output      io.Writer
	Reporter    Reporter
}

// Service runs audits against a project tree and writes their reports.
type Service struct {
	registry     *Registry
	layout       Layout
	reportTitle  string
	fileSystem   FileSystem
	observer     GroupEventObserver
	logger       *zap.Logger
	outputWriter io.Writer
	reporter     Reporter
}

// NewService constructs a Service using the provided dependencies.
func NewService(dependencies ServiceDependencies) *Service {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := dependencies.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	outputWriter := dependencies.Output
	if outputWriter == nil {
		outputWriter = io.Discard
	}
	return &Service{
		registry:     registry,
		layout:       dependencies.Layout,
		reportTitle:  dependencies.ReportTitle,
		fileSystem:   resolveFileSystem(dependencies.FileSystem),
		observer:     dependencies.Observer,
		logger:       logger,
		outputWriter: outputWriter,
		reporter:     dependencies.Reporter,
	}
}

// Audit executes every registered group against projectRoot and aggregates the results.
func (service *Service) Audit(projectRoot string) Summary {
	service.logger.Info(
		auditStartedLogMessageConstant,
		zap.String(logFieldProjectRootConstant, projectRoot),
		zap.Int(logFieldGroupCountConstant, len(service.registry.Groups())),
	)

	session := NewSession()
	runner := NewRunner(service.registry, service.observer, service.logger)
	runner.Run(session, service.environment(projectRoot))

	summary := Aggregate(session.Results())
	service.logger.Info(
		auditCompletedLogMessageConstant,
		zap.String(logFieldProjectRootConstant, projectRoot),
		zap.Float64(logFieldScoreConstant, summary.Score),
		zap.Int(logFieldPassedConstant, summary.Passed),
		zap.Int(logFieldTotalConstant, summary.Total),
	)
	return summary
}

// Run audits the project, writes the report in the requested format, and enforces the score threshold.
func (service *Service) Run(executionContext context.Context, options CommandOptions) (Verdict, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return Verdict{}, contextError
	}

	format, formatError := resolveFormat(options.Format)
	if formatError != nil {
		return Verdict{}, formatError
	}
	colorEnabled, colorError := resolveColor(options.Color, service.outputWriter)
	if colorError != nil {
		return Verdict{}, colorError
	}

	summary := service.Audit(options.ProjectRoot)
	verdict := Verdict{Summary: summary, Score: summary.Score}

	switch format {
	case OutputFormatYAML:
		if writeError := (StructuredReporter{}).Write(service.outputWriter, summary); writeError != nil {
			return verdict, writeError
		}
	default:
		reportText, score := service.textReporter(colorEnabled).Render(summary)
		verdict.Score = score
		if _, writeError := io.WriteString(service.outputWriter, reportText); writeError != nil {
			return verdict, fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
		}
	}

	if options.FailUnder > 0 && verdict.Score < options.FailUnder {
		return verdict, ScoreBelowThresholdError{Score: verdict.Score, Threshold: options.FailUnder}
	}
	return verdict, nil
}

func (service *Service) textReporter(colorEnabled bool) Reporter {
	if service.reporter != nil {
		return service.reporter
	}
	return NewTextReporter(service.reportTitle, colorEnabled)
}

func (service *Service) environment(projectRoot string) Environment {
	sources := make(map[string]string, len(service.layout.Sources))
	for role, relativePath := range service.layout.Sources {
		sources[role] = resolveProjectPath(projectRoot, relativePath)
	}

	scanRoots := make([]ScanRoot, 0, len(service.layout.ScanRoots))
	for _, scanRoot := range service.layout.ScanRoots {
		scanRoots = append(scanRoots, ScanRoot{Role: scanRoot.Role, Path: resolveProjectPath(projectRoot, scanRoot.Path)})
	}

	return Environment{
		Contents:   NewContentCache(service.fileSystem),
		FileSystem: service.fileSystem,
		Sources:    sources,
		ScanRoots:  scanRoots,
	}
}

func resolveProjectPath(projectRoot string, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(projectRoot, filepath.FromSlash(path))
}

func resolveFormat(format OutputFormat) (OutputFormat, error) {
	switch format {
	case "", OutputFormatText:
		return OutputFormatText, nil
	case OutputFormatYAML:
		return OutputFormatYAML, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplateConstant, format)
	}
}

func resolveColor(mode ColorMode, writer io.Writer) (bool, error) {
	switch mode {
	case ColorModeAlways:
		return true, nil
	case "", ColorModeNever:
		return false, nil
	case ColorModeAuto:
		return isTerminalWriter(writer), nil
	default:
		return false, fmt.Errorf(unsupportedColorModeTemplateConstant, mode)
	}
}

func isTerminalWriter(writer io.Writer) bool {
	for {
		unwrapper, wraps := writer.(interface{ Unwrap() io.Writer })
		if !wraps {
			break
		}
		writer = unwrapper.Unwrap()
	}
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
