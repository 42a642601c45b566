package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	groupStartedMessageTemplateConstant   = "Auditing %s..."
	groupCompletedMessageTemplateConstant = "Audited %s (%d %s)"
	singularCheckLabelConstant            = "check"
	pluralCheckLabelConstant              = "checks"
	unnamedGroupLabelConstant             = "unnamed group"
)

// AuditEventFormatter builds human-readable messages for audit group lifecycle events.
type AuditEventFormatter struct{}

// BuildStartedMessage formats the message announcing a group about to run.
func (formatter AuditEventFormatter) BuildStartedMessage(groupName string) string {
	return fmt.Sprintf(groupStartedMessageTemplateConstant, formatter.formatGroupLabel(groupName))
}

// BuildCompletedMessage formats the message describing a finished group.
func (formatter AuditEventFormatter) BuildCompletedMessage(groupName string, recordedResults int) string {
	checkLabel := pluralCheckLabelConstant
	if recordedResults == 1 {
		checkLabel = singularCheckLabelConstant
	}
	return fmt.Sprintf(groupCompletedMessageTemplateConstant, formatter.formatGroupLabel(groupName), recordedResults, checkLabel)
}

func (formatter AuditEventFormatter) formatGroupLabel(groupName string) string {
	trimmedGroupName := strings.TrimSpace(groupName)
	if len(trimmedGroupName) == 0 {
		return unnamedGroupLabelConstant
	}
	return trimmedGroupName
}

// ConsoleAuditEventLogger renders audit progress using a zap logger configured for human-readable output.
type ConsoleAuditEventLogger struct {
	logger    *zap.Logger
	formatter AuditEventFormatter
}

// NewConsoleAuditEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleAuditEventLogger(logger *zap.Logger) *ConsoleAuditEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleAuditEventLogger{logger: logger, formatter: AuditEventFormatter{}}
}

// GroupStarted logs the start of an audit group.
func (eventLogger *ConsoleAuditEventLogger) GroupStarted(groupName string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(groupName))
}

// GroupCompleted logs the completion of an audit group at debug level.
func (eventLogger *ConsoleAuditEventLogger) GroupCompleted(groupName string, recordedResults int) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.BuildCompletedMessage(groupName, recordedResults))
}
