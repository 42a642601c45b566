package insightatlas

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/temirov/atlas-audit/internal/audit"
)

const (
	markerPlaceholderConstant              = "{marker}"
	quotedMarkerPlaceholderConstant        = "{quoted_marker}"
	descriptionPlaceholderConstant         = "{description}"
	catalogDecodeErrorTemplateConstant     = "unable to decode check catalog: %w"
	groupInvalidErrorTemplateConstant      = "check catalog group %q: %w"
	checkInvalidErrorTemplateConstant      = "check %q: %w"
	patternInvalidErrorTemplateConstant    = "invalid pattern %q: %w"
	unknownMatchModeErrorTemplateConstant  = "unknown match mode %q"
	unknownScanModeErrorTemplateConstant   = "unknown scan mode %q"
	unknownSourceRoleErrorTemplateConstant = "unknown source role %q"
	unknownScanRootErrorTemplateConstant   = "unknown scan root %q"
	scanNamePatternErrorTemplateConstant   = "invalid name pattern %q"
	groupMissingNameMessageConstant        = "group name must be non-empty"
	groupMissingCategoryMessageConstant    = "group category must be non-empty"
	checkMissingLabelMessageConstant       = "check label must be non-empty"
	checkMissingMarkersMessageConstant     = "check requires markers or patterns"
	preconditionSourceMessageConstant      = "precondition requires a source role"
)

//go:embed catalog.yaml
var embeddedCatalogContent []byte

// Catalog is the compiled check catalog: the report title, the default
// project layout and the groups in execution order.
type Catalog struct {
	Title  string
	Layout audit.Layout
	Groups []audit.Group
}

// Registry registers every catalog group in order into a fresh registry.
func (catalog Catalog) Registry() (*audit.Registry, error) {
	registry := audit.NewRegistry()
	for _, group := range catalog.Groups {
		if registerError := registry.Register(group); registerError != nil {
			return nil, registerError
		}
	}
	return registry, nil
}

// Suite bundles the catalog into the form consumed by the audit command.
func (catalog Catalog) Suite() (audit.Suite, error) {
	registry, registryError := catalog.Registry()
	if registryError != nil {
		return audit.Suite{}, registryError
	}
	return audit.Suite{Title: catalog.Title, Layout: catalog.Layout, Registry: registry}, nil
}

// LoadSuite compiles the embedded catalog straight into an audit suite.
func LoadSuite() (audit.Suite, error) {
	catalog, loadError := Load()
	if loadError != nil {
		return audit.Suite{}, loadError
	}
	return catalog.Suite()
}

// Load compiles the embedded Insight Atlas catalog.
func Load() (Catalog, error) {
	return Parse(embeddedCatalogContent)
}

// Parse decodes and compiles a catalog document.
func Parse(catalogContent []byte) (Catalog, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(catalogContent))
	decoder.KnownFields(true)

	document := catalogDocument{}
	if decodeError := decoder.Decode(&document); decodeError != nil {
		return Catalog{}, fmt.Errorf(catalogDecodeErrorTemplateConstant, decodeError)
	}

	catalog := Catalog{
		Title:  strings.TrimSpace(document.Title),
		Layout: document.Layout.compile(),
	}
	for _, groupDocument := range document.Groups {
		group, compileError := groupDocument.compile(catalog.Layout)
		if compileError != nil {
			return Catalog{}, fmt.Errorf(groupInvalidErrorTemplateConstant, groupDocument.Name, compileError)
		}
		catalog.Groups = append(catalog.Groups, group)
	}
	return catalog, nil
}

type catalogDocument struct {
	Title  string          `yaml:"title"`
	Layout layoutDocument  `yaml:"layout"`
	Groups []groupDocument `yaml:"groups"`
}

type layoutDocument struct {
	Sources   map[string]string  `yaml:"sources"`
	ScanRoots []scanRootDocument `yaml:"scan_roots"`
}

type scanRootDocument struct {
	Role string `yaml:"role"`
	Path string `yaml:"path"`
}

type groupDocument struct {
	Name         string                `yaml:"name"`
	Category     string                `yaml:"category"`
	Source       string                `yaml:"source"`
	Precondition *preconditionDocument `yaml:"precondition"`
	Checks       []checkDocument       `yaml:"checks"`
	Scans        []scanDocument        `yaml:"scans"`
}

type preconditionDocument struct {
	Check   string `yaml:"check"`
	Message string `yaml:"message"`
}

// checkDocument describes one content check, or a table of them when Rows is set.
type checkDocument struct {
	Check      string        `yaml:"check"`
	Mode       string        `yaml:"mode"`
	Markers    []string      `yaml:"markers"`
	Patterns   []string      `yaml:"patterns"`
	IgnoreCase bool          `yaml:"ignore_case"`
	Message    string        `yaml:"message"`
	Found      string        `yaml:"found"`
	Missing    string        `yaml:"missing"`
	Severity   string        `yaml:"severity"`
	Rows       []rowDocument `yaml:"rows"`
}

type rowDocument struct {
	Marker      string `yaml:"marker"`
	Description string `yaml:"description"`
}

type scanDocument struct {
	Check    string   `yaml:"check"`
	Mode     string   `yaml:"mode"`
	Roots    []string `yaml:"roots"`
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Message  string   `yaml:"message"`
	Severity string   `yaml:"severity"`
}

func (document layoutDocument) compile() audit.Layout {
	layout := audit.Layout{Sources: make(map[string]string, len(document.Sources))}
	for role, path := range document.Sources {
		layout.Sources[strings.ToLower(strings.TrimSpace(role))] = strings.TrimSpace(path)
	}
	for _, scanRoot := range document.ScanRoots {
		layout.ScanRoots = append(layout.ScanRoots, audit.ScanRoot{
			Role: strings.ToLower(strings.TrimSpace(scanRoot.Role)),
			Path: strings.TrimSpace(scanRoot.Path),
		})
	}
	return layout
}

func (document groupDocument) compile(layout audit.Layout) (audit.CheckGroup, error) {
	group := audit.CheckGroup{
		GroupName: strings.TrimSpace(document.Name),
		Category:  strings.TrimSpace(document.Category),
		Source:    strings.ToLower(strings.TrimSpace(document.Source)),
	}
	if len(group.GroupName) == 0 {
		return audit.CheckGroup{}, errors.New(groupMissingNameMessageConstant)
	}
	if len(group.Category) == 0 {
		return audit.CheckGroup{}, errors.New(groupMissingCategoryMessageConstant)
	}
	if len(group.Source) > 0 {
		if _, known := layout.Sources[group.Source]; !known {
			return audit.CheckGroup{}, fmt.Errorf(unknownSourceRoleErrorTemplateConstant, group.Source)
		}
	}

	if document.Precondition != nil {
		if len(group.Source) == 0 {
			return audit.CheckGroup{}, errors.New(preconditionSourceMessageConstant)
		}
		group.Precondition = &audit.SourcePrecondition{Check: document.Precondition.Check, Message: document.Precondition.Message}
	}

	for _, checkEntry := range document.Checks {
		contentChecks, compileError := checkEntry.expand()
		if compileError != nil {
			return audit.CheckGroup{}, fmt.Errorf(checkInvalidErrorTemplateConstant, checkEntry.Check, compileError)
		}
		group.ContentChecks = append(group.ContentChecks, contentChecks...)
	}

	for _, scanEntry := range document.Scans {
		treeScan, compileError := scanEntry.compile(layout)
		if compileError != nil {
			return audit.CheckGroup{}, fmt.Errorf(checkInvalidErrorTemplateConstant, scanEntry.Check, compileError)
		}
		group.TreeScans = append(group.TreeScans, treeScan)
	}

	return group, nil
}

// expand produces one ContentCheck per row, or a single check when the document has no rows.
func (document checkDocument) expand() ([]audit.ContentCheck, error) {
	if len(document.Rows) == 0 {
		contentCheck, compileError := document.compile(strings.NewReplacer())
		if compileError != nil {
			return nil, compileError
		}
		return []audit.ContentCheck{contentCheck}, nil
	}

	contentChecks := make([]audit.ContentCheck, 0, len(document.Rows))
	for _, row := range document.Rows {
		contentCheck, compileError := document.compile(row.replacer())
		if compileError != nil {
			return nil, compileError
		}
		contentChecks = append(contentChecks, contentCheck)
	}
	return contentChecks, nil
}

func (document checkDocument) compile(replacer *strings.Replacer) (audit.ContentCheck, error) {
	mode, modeError := parseMatchMode(document.Mode)
	if modeError != nil {
		return audit.ContentCheck{}, modeError
	}

	contentCheck := audit.ContentCheck{
		Check:         replacer.Replace(strings.TrimSpace(document.Check)),
		Mode:          mode,
		IgnoreCase:    document.IgnoreCase,
		Message:       replacer.Replace(document.Message),
		FoundStatus:   document.Found,
		MissingStatus: document.Missing,
		Severity:      audit.Severity(document.Severity).Normalize(),
	}
	if len(contentCheck.Check) == 0 {
		return audit.ContentCheck{}, errors.New(checkMissingLabelMessageConstant)
	}

	for _, marker := range document.Markers {
		contentCheck.Markers = append(contentCheck.Markers, replacer.Replace(marker))
	}

	patterns, patternError := compilePatterns(document.Patterns, replacer)
	if patternError != nil {
		return audit.ContentCheck{}, patternError
	}
	contentCheck.Patterns = patterns

	if mode == audit.MatchRegex && len(contentCheck.Patterns) == 0 {
		return audit.ContentCheck{}, errors.New(checkMissingMarkersMessageConstant)
	}
	if mode != audit.MatchRegex && len(contentCheck.Markers) == 0 {
		return audit.ContentCheck{}, errors.New(checkMissingMarkersMessageConstant)
	}
	return contentCheck, nil
}

func (document scanDocument) compile(layout audit.Layout) (audit.TreeScan, error) {
	mode, modeError := parseScanMode(document.Mode)
	if modeError != nil {
		return audit.TreeScan{}, modeError
	}
	if len(strings.TrimSpace(document.Check)) == 0 {
		return audit.TreeScan{}, errors.New(checkMissingLabelMessageConstant)
	}
	if len(strings.TrimSpace(document.Name)) == 0 {
		return audit.TreeScan{}, fmt.Errorf(scanNamePatternErrorTemplateConstant, document.Name)
	}
	if !doublestar.ValidatePattern(document.Name) {
		return audit.TreeScan{}, fmt.Errorf(scanNamePatternErrorTemplateConstant, document.Name)
	}

	roots := make([]string, 0, len(document.Roots))
	for _, root := range document.Roots {
		normalizedRoot := strings.ToLower(strings.TrimSpace(root))
		if !hasScanRoot(layout, normalizedRoot) {
			return audit.TreeScan{}, fmt.Errorf(unknownScanRootErrorTemplateConstant, root)
		}
		roots = append(roots, normalizedRoot)
	}

	patterns, patternError := compilePatterns(document.Patterns, strings.NewReplacer())
	if patternError != nil {
		return audit.TreeScan{}, patternError
	}
	if mode == audit.ScanForbidContent && len(patterns) == 0 {
		return audit.TreeScan{}, errors.New(checkMissingMarkersMessageConstant)
	}

	return audit.TreeScan{
		Check:           strings.TrimSpace(document.Check),
		Mode:            mode,
		RootRoles:       roots,
		NamePattern:     document.Name,
		ContentPatterns: patterns,
		Message:         document.Message,
		Severity:        audit.Severity(document.Severity).Normalize(),
	}, nil
}

func (row rowDocument) replacer() *strings.Replacer {
	return strings.NewReplacer(
		quotedMarkerPlaceholderConstant, regexp.QuoteMeta(row.Marker),
		markerPlaceholderConstant, row.Marker,
		descriptionPlaceholderConstant, row.Description,
	)
}

func compilePatterns(expressions []string, replacer *strings.Replacer) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(expressions))
	for _, expression := range expressions {
		expanded := replacer.Replace(expression)
		pattern, compileError := regexp.Compile(expanded)
		if compileError != nil {
			return nil, fmt.Errorf(patternInvalidErrorTemplateConstant, expanded, compileError)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func parseMatchMode(rawMode string) (audit.MatchMode, error) {
	switch audit.MatchMode(strings.ToLower(strings.TrimSpace(rawMode))) {
	case "", audit.MatchAll:
		return audit.MatchAll, nil
	case audit.MatchAny:
		return audit.MatchAny, nil
	case audit.MatchRegex:
		return audit.MatchRegex, nil
	default:
		return "", fmt.Errorf(unknownMatchModeErrorTemplateConstant, rawMode)
	}
}

func parseScanMode(rawMode string) (audit.ScanMode, error) {
	switch audit.ScanMode(strings.ToLower(strings.TrimSpace(rawMode))) {
	case audit.ScanForbidName:
		return audit.ScanForbidName, nil
	case audit.ScanForbidContent:
		return audit.ScanForbidContent, nil
	case audit.ScanRequireName:
		return audit.ScanRequireName, nil
	default:
		return "", fmt.Errorf(unknownScanModeErrorTemplateConstant, rawMode)
	}
}

func hasScanRoot(layout audit.Layout, role string) bool {
	for _, scanRoot := range layout.ScanRoots {
		if scanRoot.Role == role {
			return true
		}
	}
	return false
}
