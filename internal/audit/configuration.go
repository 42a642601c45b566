package audit

import (
	"strings"
	"time"
)

const (
	defaultProjectRootConstant   = "."
	defaultWatchDebounceConstant = 500 * time.Millisecond
)

// CommandConfiguration captures persistent settings for the audit command.
type CommandConfiguration struct {
	ProjectRoot   string                  `mapstructure:"project_root"`
	Format        string                  `mapstructure:"format"`
	Color         string                  `mapstructure:"color"`
	FailUnder     float64                 `mapstructure:"fail_under"`
	WatchDebounce time.Duration           `mapstructure:"watch_debounce"`
	Sources       map[string]string       `mapstructure:"sources"`
	ScanRoots     []ScanRootConfiguration `mapstructure:"scan_roots"`
}

// ScanRootConfiguration names a directory, relative to the project root, walked by tree scans.
type ScanRootConfiguration struct {
	Role string `mapstructure:"role"`
	Path string `mapstructure:"path"`
}

// DefaultCommandConfiguration returns baseline configuration values for the audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ProjectRoot:   defaultProjectRootConstant,
		Format:        string(OutputFormatText),
		Color:         string(ColorModeAuto),
		FailUnder:     0,
		WatchDebounce: defaultWatchDebounceConstant,
	}
}

// DefaultConfigurationValues returns viper defaults for the audit command under the provided key prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + ".project_root":   defaults.ProjectRoot,
		prefix + ".format":         defaults.Format,
		prefix + ".color":          defaults.Color,
		prefix + ".fail_under":     defaults.FailUnder,
		prefix + ".watch_debounce": defaults.WatchDebounce.String(),
	}
}

// Sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.ProjectRoot = strings.TrimSpace(configuration.ProjectRoot)
	if len(sanitized.ProjectRoot) == 0 {
		sanitized.ProjectRoot = defaults.ProjectRoot
	}

	sanitized.Format = strings.ToLower(strings.TrimSpace(configuration.Format))
	if len(sanitized.Format) == 0 {
		sanitized.Format = defaults.Format
	}

	sanitized.Color = strings.ToLower(strings.TrimSpace(configuration.Color))
	if len(sanitized.Color) == 0 {
		sanitized.Color = defaults.Color
	}

	if sanitized.FailUnder < 0 {
		sanitized.FailUnder = 0
	}

	if sanitized.WatchDebounce <= 0 {
		sanitized.WatchDebounce = defaults.WatchDebounce
	}

	sanitized.Sources = sanitizeSources(configuration.Sources)
	sanitized.ScanRoots = sanitizeScanRoots(configuration.ScanRoots)

	return sanitized
}

func sanitizeSources(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	sanitized := make(map[string]string, len(raw))
	for role, path := range raw {
		trimmedRole := strings.ToLower(strings.TrimSpace(role))
		trimmedPath := strings.TrimSpace(path)
		if len(trimmedRole) == 0 || len(trimmedPath) == 0 {
			continue
		}
		sanitized[trimmedRole] = trimmedPath
	}
	return sanitized
}

func sanitizeScanRoots(raw []ScanRootConfiguration) []ScanRootConfiguration {
	sanitized := make([]ScanRootConfiguration, 0, len(raw))
	for index := range raw {
		trimmedRole := strings.ToLower(strings.TrimSpace(raw[index].Role))
		trimmedPath := strings.TrimSpace(raw[index].Path)
		if len(trimmedRole) == 0 || len(trimmedPath) == 0 {
			continue
		}
		sanitized = append(sanitized, ScanRootConfiguration{Role: trimmedRole, Path: trimmedPath})
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}
