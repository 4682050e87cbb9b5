package security

import "time"

// EventCategory represents the category of a security event
type EventCategory string

const (
	// CategoryAuthentication represents connects that present credentials
	CategoryAuthentication EventCategory = "authentication"

	// CategoryDataAccess represents adding or removing a drive mapping
	CategoryDataAccess EventCategory = "data_access"

	// CategorySecurityViolation represents runs stopped by repeated denials
	CategorySecurityViolation EventCategory = "security_violation"
)

// EventSeverity represents the severity level of a security event
type EventSeverity string

const (
	// SeverityInfo represents informational events
	SeverityInfo EventSeverity = "info"

	// SeverityWarning represents warning events
	SeverityWarning EventSeverity = "warning"

	// SeverityError represents error events
	SeverityError EventSeverity = "error"

	// SeverityCritical represents critical security events
	SeverityCritical EventSeverity = "critical"
)

// EventOutcome represents the outcome of a security event
type EventOutcome string

const (
	// OutcomeSuccess indicates the operation succeeded
	OutcomeSuccess EventOutcome = "success"

	// OutcomeFailure indicates the operation failed
	OutcomeFailure EventOutcome = "failure"

	// OutcomeDenied indicates the server rejected the credentials
	OutcomeDenied EventOutcome = "denied"

	// OutcomeUnknown indicates the outcome is unknown
	OutcomeUnknown EventOutcome = "unknown"
)

// EventType represents specific types of security events
type EventType string

const (
	// Authentication events
	EventCredentialConnectAttempt EventType = "credential_connect_attempt"
	EventCredentialConnectSuccess EventType = "credential_connect_success"
	EventCredentialConnectFailure EventType = "credential_connect_failure"
	EventLogonDenied              EventType = "logon_denied"

	// Data access events
	EventStaleMappingRemoved EventType = "stale_mapping_removed"
	EventMappingRemoved      EventType = "mapping_removed"
	EventMappingRestored     EventType = "mapping_restored"

	// Security violation events
	EventFatalBreakerOpen EventType = "fatal_breaker_open"
)

// SecurityEvent represents a security-relevant event. It never carries a
// password; Error must already be redacted.
type SecurityEvent struct {
	// Core event fields
	Timestamp time.Time     `json:"timestamp"`
	EventType EventType     `json:"event_type"`
	Category  EventCategory `json:"category"`
	Severity  EventSeverity `json:"severity"`
	Outcome   EventOutcome  `json:"outcome"`
	Message   string        `json:"message"`

	// Identity fields
	Username string `json:"username,omitempty"`
	Host     string `json:"host,omitempty"`

	// Resource fields
	Drive string `json:"drive,omitempty"`
	Share string `json:"share,omitempty"`

	// Operation details
	Operation string            `json:"operation,omitempty"`
	Duration  time.Duration     `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// NewSecurityEvent creates a new security event with timestamp
func NewSecurityEvent(eventType EventType, category EventCategory, severity EventSeverity, message string) *SecurityEvent {
	return &SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Category:  category,
		Severity:  severity,
		Outcome:   OutcomeUnknown,
		Message:   message,
		Details:   make(map[string]string),
	}
}

// WithOutcome sets the outcome for the event
func (e *SecurityEvent) WithOutcome(outcome EventOutcome) *SecurityEvent {
	e.Outcome = outcome
	return e
}

// WithIdentity sets the account and the server it was presented to
func (e *SecurityEvent) WithIdentity(username, host string) *SecurityEvent {
	e.Username = username
	e.Host = host
	return e
}

// WithMapping sets the drive and share the event is about
func (e *SecurityEvent) WithMapping(drive, share string) *SecurityEvent {
	e.Drive = drive
	e.Share = share
	return e
}

// WithOperation sets operation details
func (e *SecurityEvent) WithOperation(operation string, duration time.Duration) *SecurityEvent {
	e.Operation = operation
	e.Duration = duration
	return e
}

// WithError sets an already redacted error message
func (e *SecurityEvent) WithError(msg string) *SecurityEvent {
	e.Error = msg
	return e
}

// WithDetail adds a custom detail field
func (e *SecurityEvent) WithDetail(key, value string) *SecurityEvent {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}
