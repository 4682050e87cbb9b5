package security

import (
	"encoding/json"
	"fmt"
	"sort"

	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/mapdrive/pkg/observability"
	"git.srvlab.io/whiskey/mapdrive/pkg/utils"
)

// Logger provides centralized security event logging
type Logger struct {
	metrics *observability.Metrics
}

// NewLogger creates a new security logger. metrics may be nil.
func NewLogger(metrics *observability.Metrics) *Logger {
	return &Logger{metrics: metrics}
}

// severityMapping defines how a severity level maps to klog behavior
type severityMapping struct {
	logFunc func(args ...interface{})
}

// severityMap maps EventSeverity to klog verbosity and logging function
var severityMap = map[EventSeverity]severityMapping{
	SeverityInfo:     {logFunc: func(args ...interface{}) { klog.V(2).Info(args...) }},
	SeverityWarning:  {logFunc: klog.Warning},
	SeverityError:    {logFunc: klog.Error},
	SeverityCritical: {logFunc: klog.Error},
}

// LogEvent logs a security event with structured logging
func (l *Logger) LogEvent(event *SecurityEvent) {
	if l.metrics != nil {
		l.metrics.RecordSecurityEvent(string(event.EventType), string(event.Outcome))
	}

	// Look up severity mapping (default to Info if unknown)
	mapping, ok := severityMap[event.Severity]
	if !ok {
		mapping = severityMap[SeverityInfo]
	}
	mapping.logFunc(formatLogMessage(event))

	// For critical events, also log as JSON for easy parsing
	if event.Severity == SeverityCritical {
		if jsonBytes, err := json.Marshal(event); err == nil {
			klog.Errorf("CRITICAL_SECURITY_EVENT: %s", string(jsonBytes))
		}
	}
}

// formatLogMessage formats a security event as a structured log message
func formatLogMessage(event *SecurityEvent) string {
	msg := fmt.Sprintf("[SECURITY] category=%s type=%s severity=%s outcome=%s msg=%q",
		event.Category, event.EventType, event.Severity, event.Outcome, event.Message)

	if event.Username != "" {
		msg += fmt.Sprintf(" username=%s", event.Username)
	}
	if event.Host != "" {
		msg += fmt.Sprintf(" host=%s", event.Host)
	}
	if event.Drive != "" {
		msg += fmt.Sprintf(" drive=%s", event.Drive)
	}
	if event.Share != "" {
		msg += fmt.Sprintf(" share=%s", event.Share)
	}
	if event.Operation != "" {
		msg += fmt.Sprintf(" operation=%s", event.Operation)
	}
	if event.Duration > 0 {
		msg += fmt.Sprintf(" duration_ms=%d", event.Duration.Milliseconds())
	}
	if event.Error != "" {
		msg += fmt.Sprintf(" error=%q", event.Error)
	}

	// Sorted so the same event always formats the same way
	keys := make([]string, 0, len(event.Details))
	for key := range event.Details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		msg += fmt.Sprintf(" %s=%q", key, event.Details[key])
	}

	msg += fmt.Sprintf(" timestamp=%s", event.Timestamp.Format("2006-01-02T15:04:05.000Z"))
	return msg
}

// Helper methods for common security events

// LogCredentialConnectAttempt logs the start of a run that presents credentials
func (l *Logger) LogCredentialConnectAttempt(username, drive, share string) {
	host, _ := utils.UNCHost(share)
	event := NewSecurityEvent(
		EventCredentialConnectAttempt,
		CategoryAuthentication,
		SeverityInfo,
		"Connecting share with supplied credentials",
	).WithIdentity(username, host).
		WithMapping(drive, share)
	l.LogEvent(event)
}

// LogCredentialConnectSuccess logs a successful credentialed connect
func (l *Logger) LogCredentialConnectSuccess(username, drive, share string, attempts int) {
	host, _ := utils.UNCHost(share)
	event := NewSecurityEvent(
		EventCredentialConnectSuccess,
		CategoryAuthentication,
		SeverityInfo,
		"Share connected with supplied credentials",
	).WithIdentity(username, host).
		WithMapping(drive, share).
		WithDetail("attempts", fmt.Sprint(attempts)).
		WithOutcome(OutcomeSuccess)
	l.LogEvent(event)
}

// LogCredentialConnectFailure logs a credentialed run that ended without a mapping
func (l *Logger) LogCredentialConnectFailure(username, drive, share, errMsg string, attempts int) {
	host, _ := utils.UNCHost(share)
	event := NewSecurityEvent(
		EventCredentialConnectFailure,
		CategoryAuthentication,
		SeverityError,
		"Share could not be connected with supplied credentials",
	).WithIdentity(username, host).
		WithMapping(drive, share).
		WithDetail("attempts", fmt.Sprint(attempts)).
		WithError(errMsg).
		WithOutcome(OutcomeFailure)
	l.LogEvent(event)
}

// LogLogonDenied logs a connect the server rejected for the given account
func (l *Logger) LogLogonDenied(username, drive, share, errMsg string) {
	host, _ := utils.UNCHost(share)
	event := NewSecurityEvent(
		EventLogonDenied,
		CategoryAuthentication,
		SeverityWarning,
		"Server rejected credentials",
	).WithIdentity(username, host).
		WithMapping(drive, share).
		WithError(errMsg).
		WithOutcome(OutcomeDenied)
	l.LogEvent(event)
}

// LogStaleMappingRemoved logs the forced removal of an offline mapping
func (l *Logger) LogStaleMappingRemoved(drive, share string, err error) {
	event := NewSecurityEvent(
		EventStaleMappingRemoved,
		CategoryDataAccess,
		SeverityInfo,
		"Removed offline mapping before reconnecting",
	).WithMapping(drive, share).
		WithOperation("disconnect", 0).
		WithOutcome(OutcomeSuccess)
	if err != nil {
		event.WithError(err.Error()).WithOutcome(OutcomeFailure)
	}
	l.LogEvent(event)
}

// LogMappingRemoved logs an explicit disconnect
func (l *Logger) LogMappingRemoved(drive string, force bool, err error) {
	event := NewSecurityEvent(
		EventMappingRemoved,
		CategoryDataAccess,
		SeverityInfo,
		"Drive mapping removed",
	).WithMapping(drive, "").
		WithOperation("disconnect", 0).
		WithDetail("force", fmt.Sprint(force)).
		WithOutcome(OutcomeSuccess)
	if err != nil {
		event.Severity = SeverityWarning
		event.WithError(err.Error()).WithOutcome(OutcomeFailure)
	}
	l.LogEvent(event)
}

// LogMappingRestored logs a reconnect of a remembered mapping
func (l *Logger) LogMappingRestored(drive string, err error) {
	event := NewSecurityEvent(
		EventMappingRestored,
		CategoryDataAccess,
		SeverityInfo,
		"Remembered mapping restored",
	).WithMapping(drive, "").
		WithOperation("restore", 0).
		WithOutcome(OutcomeSuccess)
	if err != nil {
		event.Severity = SeverityWarning
		event.WithError(err.Error()).WithOutcome(OutcomeFailure)
	}
	l.LogEvent(event)
}

// LogFatalBreakerOpen logs a run stopped by repeated fatal failures
func (l *Logger) LogFatalBreakerOpen(drive, share string, failures int, errMsg string) {
	event := NewSecurityEvent(
		EventFatalBreakerOpen,
		CategorySecurityViolation,
		SeverityCritical,
		"Stopped retrying after consecutive fatal failures",
	).WithMapping(drive, share).
		WithDetail("failures", fmt.Sprint(failures)).
		WithError(errMsg).
		WithOutcome(OutcomeDenied)
	l.LogEvent(event)
}
