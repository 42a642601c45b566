package audit

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	groupAbortedCheckConstant            = "Group completed"
	groupAbortedMessageTemplateConstant  = "audit group %s aborted: %v"
	groupNameRequiredMessageConstant     = "audit group name must be non-empty"
	groupDuplicateNameTemplateConstant   = "audit group %s registered twice"
	groupNilMessageConstant              = "audit group must not be nil"
	runnerGroupStartedLogMessageConstant = "audit group started"
	runnerGroupDoneLogMessageConstant    = "audit group completed"
	runnerGroupPanicLogMessageConstant   = "audit group aborted"
	logFieldGroupNameConstant            = "group"
	logFieldResultCountConstant          = "results"
	logFieldPanicConstant                = "panic"
)

// ScanRoot names a directory walked by tree scans.
type ScanRoot struct {
	Role string
	Path string
}

// Environment exposes the collaborators and resolved paths available to groups during one run.
type Environment struct {
	Contents   *ContentCache
	FileSystem FileSystem
	Sources    map[string]string
	ScanRoots  []ScanRoot
}

// SourcePath returns the resolved path for a source role, or an empty string when unknown.
func (environment Environment) SourcePath(role string) string {
	return environment.Sources[role]
}

// ScanRootPaths returns the paths of the requested roles in configuration order; no roles selects all roots.
func (environment Environment) ScanRootPaths(roles []string) []string {
	paths := make([]string, 0, len(environment.ScanRoots))
	for _, scanRoot := range environment.ScanRoots {
		if len(roles) > 0 && !containsFold(roles, scanRoot.Role) {
			continue
		}
		paths = append(paths, scanRoot.Path)
	}
	return paths
}

func containsFold(values []string, candidate string) bool {
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), candidate) {
			return true
		}
	}
	return false
}

// Group is an independently executable set of checks sharing a concern.
type Group interface {
	Name() string
	Run(session *Session, environment Environment)
}

// SourcePrecondition makes a group emit a single failing result when its source file is empty or unreadable.
type SourcePrecondition struct {
	Check   string
	Message string
}

// CheckGroup is the data-driven Group used by check catalogs.
type CheckGroup struct {
	GroupName     string
	Category      string
	Source        string
	Precondition  *SourcePrecondition
	ContentChecks []ContentCheck
	TreeScans     []TreeScan
}

// Name returns the group's display name.
func (group CheckGroup) Name() string {
	return group.GroupName
}

// Run evaluates every content check against the group's source file, then every tree scan.
func (group CheckGroup) Run(session *Session, environment Environment) {
	content := ""
	if len(group.Source) > 0 && environment.Contents != nil {
		content = environment.Contents.Read(environment.SourcePath(group.Source))
	}

	if group.Precondition != nil && len(content) == 0 {
		session.Add(group.Category, group.Precondition.Check, false, group.Precondition.Message, SeverityError)
		return
	}

	for _, contentCheck := range group.ContentChecks {
		session.Record(contentCheck.Evaluate(group.Category, content))
	}

	for _, treeScan := range group.TreeScans {
		session.Record(treeScan.Evaluate(group.Category, environment))
	}
}

// Registry holds groups in registration order.
type Registry struct {
	groups []Group
	names  map[string]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends a group. Group names must be unique within a registry.
func (registry *Registry) Register(group Group) error {
	if group == nil {
		return errors.New(groupNilMessageConstant)
	}
	groupName := strings.TrimSpace(group.Name())
	if len(groupName) == 0 {
		return errors.New(groupNameRequiredMessageConstant)
	}
	if _, exists := registry.names[groupName]; exists {
		return fmt.Errorf(groupDuplicateNameTemplateConstant, groupName)
	}
	registry.names[groupName] = struct{}{}
	registry.groups = append(registry.groups, group)
	return nil
}

// Groups returns the registered groups in registration order.
func (registry *Registry) Groups() []Group {
	if registry == nil {
		return nil
	}
	return append([]Group{}, registry.groups...)
}

// Runner executes every registered group sequentially against a session.
type Runner struct {
	registry *Registry
	observer GroupEventObserver
	logger   *zap.Logger
}

// NewRunner constructs a Runner. Nil observer and logger are allowed.
func NewRunner(registry *Registry, observer GroupEventObserver, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{registry: registry, observer: observer, logger: logger}
}

// Run invokes all groups unconditionally in registration order.
func (runner *Runner) Run(session *Session, environment Environment) {
	for _, group := range runner.registry.Groups() {
		runner.runGroup(group, session, environment)
	}
}

func (runner *Runner) runGroup(group Group, session *Session, environment Environment) {
	groupName := group.Name()
	recordedBefore := session.Len()

	if runner.observer != nil {
		runner.observer.GroupStarted(groupName)
	}
	runner.logger.Debug(runnerGroupStartedLogMessageConstant, zap.String(logFieldGroupNameConstant, groupName))

	defer func() {
		if recovered := recover(); recovered != nil {
			runner.logger.Error(
				runnerGroupPanicLogMessageConstant,
				zap.String(logFieldGroupNameConstant, groupName),
				zap.Any(logFieldPanicConstant, recovered),
			)
			session.Add(groupName, groupAbortedCheckConstant, false, fmt.Sprintf(groupAbortedMessageTemplateConstant, groupName, recovered), SeverityError)
		}

		recordedResults := session.Len() - recordedBefore
		runner.logger.Debug(
			runnerGroupDoneLogMessageConstant,
			zap.String(logFieldGroupNameConstant, groupName),
			zap.Int(logFieldResultCountConstant, recordedResults),
		)
		if runner.observer != nil {
			runner.observer.GroupCompleted(groupName, recordedResults)
		}
	}()

	group.Run(session, environment)
}

// Suite bundles a registry with the project layout its groups expect and the report title.
type Suite struct {
	Title    string
	Layout   Layout
	Registry *Registry
}
