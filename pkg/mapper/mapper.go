package mapper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/mapdrive/pkg/circuitbreaker"
	"git.srvlab.io/whiskey/mapdrive/pkg/observability"
	"git.srvlab.io/whiskey/mapdrive/pkg/probe"
	"git.srvlab.io/whiskey/mapdrive/pkg/security"
	"git.srvlab.io/whiskey/mapdrive/pkg/utils"
	"git.srvlab.io/whiskey/mapdrive/pkg/wnet"
)

const (
	// DefaultRetryInterval is the fixed wait between connect attempts
	DefaultRetryInterval = 1 * time.Second
)

// StatusProber answers the two questions the mapper asks before connecting.
// *probe.Prober implements it.
type StatusProber interface {
	IsOnline(ctx context.Context, drive string, timeout time.Duration) bool
	IsMapped(ctx context.Context, drive string) bool
}

// Config holds configuration for Mapper.
type Config struct {
	// Client is the OS binding used to connect and disconnect (required)
	Client wnet.Client

	// Prober checks current drive state (required)
	Prober StatusProber

	// ProbeTimeout is the budget for the initial online check (default: 1s)
	ProbeTimeout time.Duration

	// RetryInterval is the wait between attempts (default: 1s)
	RetryInterval time.Duration

	// FatalThreshold stops the run after this many consecutive fatal
	// failures (access denied, bad credentials ...). 0 retries every failure
	// until the budget runs out.
	FatalThreshold int

	// Metrics is optional Prometheus metrics recorder (may be nil)
	Metrics *observability.Metrics

	// Audit receives security events (default: a logger on Metrics)
	Audit *security.Logger

	// Timer overrides the retry wait timer, for tests (may be nil)
	Timer backoff.Timer
}

// Mapper establishes drive mappings, retrying while the share is unavailable.
type Mapper struct {
	config  Config
	client  wnet.Client
	prober  StatusProber
	metrics *observability.Metrics
	audit   *security.Logger
}

// NewMapper creates a new Mapper with the given configuration.
// Validates config and sets defaults for zero values.
func NewMapper(config Config) (*Mapper, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if config.Prober == nil {
		return nil, fmt.Errorf("prober is required")
	}
	if config.FatalThreshold < 0 {
		return nil, fmt.Errorf("fatal threshold must not be negative")
	}

	// Set defaults
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = probe.DefaultTimeout
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = DefaultRetryInterval
	}
	if config.Audit == nil {
		config.Audit = security.NewLogger(config.Metrics)
	}

	return &Mapper{
		config:  config,
		client:  config.Client,
		prober:  config.Prober,
		metrics: config.Metrics,
		audit:   config.Audit,
	}, nil
}

// Map brings req.Drive online:
//
//  1. If the drive is already online, nothing is changed.
//  2. If it is mapped but offline, the stale mapping is force-disconnected.
//     A failed disconnect is ignored.
//  3. Connect is attempted immediately, then once per RetryInterval, for a
//     total of req.Timeout+1 attempts.
//
// The returned error is non-nil only for an invalid request; every runtime
// failure is reported through Result.Outcome.
func (m *Mapper) Map(ctx context.Context, req Request) (*Result, error) {
	req, err := req.Validate()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := klog.FromContext(ctx).WithValues("drive", req.Drive, "share", req.Share)
	result := &Result{
		Drive:     req.Drive,
		Share:     req.Share,
		Remaining: req.Timeout,
	}

	if m.prober.IsOnline(ctx, req.Drive, m.config.ProbeTimeout) {
		logger.V(2).Info("Drive already online, leaving mapping untouched")
		return m.finish(ctx, result, OutcomeAlreadyOnline, start), nil
	}

	if m.prober.IsMapped(ctx, req.Drive) {
		logger.V(2).Info("Drive mapped but offline, disconnecting stale mapping")
		err := m.disconnect(req.Drive, true)
		if err != nil {
			logger.V(2).Info("Ignoring failed disconnect", "err", err)
		} else {
			result.Disconnected = true
		}
		m.audit.LogStaleMappingRemoved(req.Drive, req.Share, err)
	}

	if req.hasCredentials() {
		m.audit.LogCredentialConnectAttempt(req.Credentials.Username, req.Drive, req.Share)
	}

	outcome := m.connectWithRetry(ctx, req, result)
	m.auditOutcome(req, result, outcome)
	return m.finish(ctx, result, outcome, start), nil
}

// connectWithRetry runs the attempt loop and updates result in place.
func (m *Mapper) connectWithRetry(ctx context.Context, req Request, result *Result) Outcome {
	logger := klog.FromContext(ctx).WithValues("drive", req.Drive)
	opts := connectOptions(req)
	breaker := circuitbreaker.NewFatalBreaker(req.Drive, m.config.FatalThreshold, wnet.IsRetryable)
	aborted := false

	operation := func() error {
		result.Attempts++
		err := breaker.Execute(func() error {
			return m.client.Connect(req.Drive, req.Share, opts)
		})

		class := wnet.Classify(err)
		if m.metrics != nil {
			m.metrics.RecordConnectAttempt(err, class.String())
		}
		if err == nil {
			return nil
		}

		result.Remaining--
		result.LastErr = err
		msg := redact(err, req)
		logger.V(2).Info("Connect attempt failed",
			"attempt", result.Attempts,
			"class", class,
			"remaining", result.Remaining,
			"err", msg)

		if wnet.IsAuthFailure(err) {
			m.audit.LogLogonDenied(opts.Username, req.Drive, req.Share, msg)
		}
		if breaker.Open() {
			aborted = true
			m.audit.LogFatalBreakerOpen(req.Drive, req.Share, m.config.FatalThreshold, msg)
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		result.Sleeps++
		logger.V(4).Info("Waiting before next attempt", "wait", next, "sleep", result.Sleeps)
	}

	// WithMaxRetries(n) allows n retries after the first attempt, so the
	// budget B yields B+1 attempts and B waits.
	var b backoff.BackOff = backoff.NewConstantBackOff(m.config.RetryInterval)
	b = backoff.WithMaxRetries(b, uint64(req.Timeout))
	b = backoff.WithContext(b, ctx)

	err := backoff.RetryNotifyWithTimer(operation, b, notify, m.config.Timer)
	switch {
	case err == nil:
		return OutcomeMapped
	case aborted:
		return OutcomeAborted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeExhausted
	}
}

// auditOutcome records how a credentialed run ended
func (m *Mapper) auditOutcome(req Request, result *Result, outcome Outcome) {
	if !req.hasCredentials() {
		return
	}
	username := req.Credentials.Username
	if outcome == OutcomeMapped {
		m.audit.LogCredentialConnectSuccess(username, req.Drive, req.Share, result.Attempts)
		return
	}
	msg := outcome.String()
	if result.LastErr != nil {
		msg = redact(result.LastErr, req)
	}
	m.audit.LogCredentialConnectFailure(username, req.Drive, req.Share, msg, result.Attempts)
}

// connectOptions applies the fixed policy: never persist the mapping at
// logon, save credentials when they are supplied.
func connectOptions(req Request) wnet.ConnectOptions {
	if !req.hasCredentials() {
		return wnet.ConnectOptions{Persist: false}
	}
	return wnet.ConnectOptions{
		Persist:         false,
		SaveCredentials: true,
		Username:        req.Credentials.Username,
		Password:        req.Credentials.Password,
	}
}

func (m *Mapper) finish(ctx context.Context, result *Result, outcome Outcome, start time.Time) *Result {
	result.Outcome = outcome
	result.Duration = time.Since(start)

	if m.metrics != nil {
		m.metrics.RecordMapOutcome(outcome.String(), result.Duration)
	}

	logger := klog.FromContext(ctx)
	kv := []interface{}{
		"drive", result.Drive,
		"share", result.Share,
		"outcome", outcome,
		"attempts", result.Attempts,
		"duration", result.Duration.Round(time.Millisecond),
	}
	if outcome.Success() {
		logger.Info("Drive mapping ready", kv...)
	} else {
		logger.Error(result.LastErr, "Drive mapping failed", kv...)
	}
	return result
}

// Disconnect removes the mapping for drive, including its remembered
// profile entry.
func (m *Mapper) Disconnect(ctx context.Context, drive string, force bool) error {
	normalized, err := utils.NormalizeDrive(drive)
	if err != nil {
		return err
	}

	err = m.disconnect(normalized, force)
	m.audit.LogMappingRemoved(normalized, force, err)
	if err != nil {
		return utils.NewInternalError(err, "failed to disconnect drive").
			WithContext("drive", normalized).
			WithContext("force", fmt.Sprint(force))
	}
	klog.FromContext(ctx).V(2).Info("Disconnected drive", "drive", normalized, "force", force)
	return nil
}

func (m *Mapper) disconnect(drive string, force bool) error {
	err := m.client.Disconnect(drive, force)
	if m.metrics != nil {
		m.metrics.RecordDisconnect(err)
	}
	return err
}

// Restore reconnects a remembered mapping for drive.
func (m *Mapper) Restore(ctx context.Context, drive string) error {
	normalized, err := utils.NormalizeDrive(drive)
	if err != nil {
		return err
	}

	err = m.client.RestoreConnection(normalized)
	m.audit.LogMappingRestored(normalized, err)
	if err != nil {
		return utils.NewInternalError(err, "failed to restore drive").
			WithContext("drive", normalized)
	}
	klog.FromContext(ctx).V(2).Info("Restored remembered mapping", "drive", normalized)
	return nil
}

// redact returns err's message with any password removed.
func redact(err error, req Request) string {
	if req.Credentials == nil {
		return err.Error()
	}
	return utils.RedactSecret(err.Error(), req.Credentials.Password)
}
