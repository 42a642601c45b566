package utils

import (
	"context"
	"strings"
)

type configurationFilePathContextKey struct{}

// CommandContextAccessor carries values the root command resolves before a subcommand runs.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath records the configuration file that was merged over the embedded defaults.
// An empty path records that only embedded defaults and the environment were used.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKey{}, strings.TrimSpace(configurationFilePath))
}

// ConfigurationFilePath returns the recorded configuration file. It reports false when no file was used.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, _ := executionContext.Value(configurationFilePathContextKey{}).(string)
	return configurationFilePath, len(configurationFilePath) > 0
}
