package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/mapdrive/pkg/observability"
	"git.srvlab.io/whiskey/mapdrive/pkg/utils"
	"git.srvlab.io/whiskey/mapdrive/pkg/wnet"
)

const (
	// DefaultTimeout is the total budget for one reachability check
	DefaultTimeout = 1000 * time.Millisecond

	// PortSMB is SMB over TCP (direct hosting)
	PortSMB = 445

	// PortNetBIOS is SMB over NetBIOS session service
	PortNetBIOS = 139
)

// DefaultPorts are tried in order: direct SMB first, NetBIOS second.
var DefaultPorts = []int{PortSMB, PortNetBIOS}

// DialFunc opens a connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// LookupFunc resolves a host name; net.Resolver.LookupHost satisfies it.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Config holds configuration for Prober.
type Config struct {
	// Client is the OS binding used to resolve drive mappings (required)
	Client wnet.Client

	// Ports to probe in order (default: 445, 139)
	Ports []int

	// Dial opens TCP connections (default: net.Dialer)
	Dial DialFunc

	// Lookup resolves host names (default: net.DefaultResolver)
	Lookup LookupFunc

	// Metrics is optional Prometheus metrics recorder (may be nil)
	Metrics *observability.Metrics
}

// DriveStatus is the derived state of one drive letter. It is computed on
// every call and never cached.
type DriveStatus struct {
	Drive      string
	RemoteName string
	Mapped     bool
	Online     bool
}

// Prober answers whether a drive is mapped and whether its server is
// reachable. It never changes drive state and never returns errors from its
// checks: every failure means "not usable right now".
type Prober struct {
	client  wnet.Client
	ports   []int
	dial    DialFunc
	lookup  LookupFunc
	metrics *observability.Metrics
}

// NewProber creates a Prober, applying defaults for zero values.
func NewProber(config Config) (*Prober, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if len(config.Ports) == 0 {
		config.Ports = DefaultPorts
	}
	if config.Dial == nil {
		config.Dial = (&net.Dialer{}).DialContext
	}
	if config.Lookup == nil {
		config.Lookup = net.DefaultResolver.LookupHost
	}

	return &Prober{
		client:  config.Client,
		ports:   append([]int(nil), config.Ports...),
		dial:    config.Dial,
		lookup:  config.Lookup,
		metrics: config.Metrics,
	}, nil
}

// IsMapped reports whether drive currently resolves to a non-empty remote
// name. Invalid drives and OS errors both report false.
func (p *Prober) IsMapped(ctx context.Context, drive string) bool {
	_, ok := p.remoteName(ctx, drive)
	return ok
}

// IsOnline reports whether drive is mapped and its server accepts a TCP
// connection on an SMB port within timeout.
func (p *Prober) IsOnline(ctx context.Context, drive string, timeout time.Duration) bool {
	remote, ok := p.remoteName(ctx, drive)
	if !ok {
		return false
	}
	return p.IsReachable(ctx, remote, timeout)
}

// Status returns the mapped/online state of drive together with its remote name.
func (p *Prober) Status(ctx context.Context, drive string, timeout time.Duration) DriveStatus {
	status := DriveStatus{Drive: drive}
	if normalized, err := utils.NormalizeDrive(drive); err == nil {
		status.Drive = normalized
	}

	remote, ok := p.remoteName(ctx, drive)
	if !ok {
		return status
	}
	status.RemoteName = remote
	status.Mapped = true
	status.Online = p.IsReachable(ctx, remote, timeout)
	return status
}

// ListMapped returns the status of every network drive currently present.
func (p *Prober) ListMapped(ctx context.Context, timeout time.Duration) ([]DriveStatus, error) {
	drives, err := p.client.LogicalDrives()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate drives: %w", err)
	}

	logger := klog.FromContext(ctx)
	var statuses []DriveStatus
	for _, drive := range drives {
		if !p.client.IsNetworkDrive(drive) {
			logger.V(5).Info("Skipping local drive", "drive", drive)
			continue
		}
		statuses = append(statuses, p.Status(ctx, drive, timeout))
	}
	return statuses, nil
}

// IsReachable reports whether the host of uncPath accepts a TCP connection on
// any probe port. The timeout is split evenly across the ports and the ports
// are tried in order, stopping at the first success. Resolution counts against
// the same budget, so the call never takes longer than timeout.
func (p *Prober) IsReachable(ctx context.Context, uncPath string, timeout time.Duration) bool {
	logger := klog.FromContext(ctx)

	host, ok := utils.UNCHost(uncPath)
	if !ok {
		logger.V(4).Info("Not a UNC path, treating as unreachable", "path", uncPath)
		return false
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr, err := p.resolve(ctx, host)
	if err != nil {
		logger.V(4).Info("Host did not resolve, treating as unreachable", "host", host, "err", err)
		return false
	}

	perPort := timeout / time.Duration(len(p.ports))
	for _, port := range p.ports {
		if p.dialPort(ctx, addr, port, perPort) {
			logger.V(4).Info("SMB port reachable", "host", host, "addr", addr, "port", port)
			return true
		}
	}

	logger.V(4).Info("No SMB port reachable", "host", host, "addr", addr, "ports", p.ports, "timeout", timeout)
	return false
}

// resolve returns the first address for host. IP literals are returned as-is.
func (p *Prober) resolve(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	addrs, err := p.lookup(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}
	return addrs[0], nil
}

// dialPort tries one TCP connect bounded by timeout. The connection is closed
// before returning on every path.
func (p *Prober) dialPort(ctx context.Context, addr string, port int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := net.JoinHostPort(addr, strconv.Itoa(port))
	conn, err := p.dial(ctx, "tcp", target)
	reachable := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	if p.metrics != nil {
		p.metrics.RecordProbe(strconv.Itoa(port), reachable)
	}
	if err != nil {
		klog.FromContext(ctx).V(5).Info("Dial failed", "target", target, "err", err)
	}
	return reachable
}

// RemoteName resolves drive to its UNC path. A drive with no active
// connection, or one the OS reports with an empty remote name, returns an
// error matching utils.ErrNotMapped.
func (p *Prober) RemoteName(drive string) (string, error) {
	normalized, err := utils.NormalizeDrive(drive)
	if err != nil {
		return "", err
	}

	remote, err := p.client.RemoteName(normalized)
	if err != nil {
		if wnet.CodeOf(err) == wnet.ErrorNotConnected {
			return "", fmt.Errorf("%w: %s", utils.ErrNotMapped, normalized)
		}
		return "", utils.NewInternalError(err, "failed to read remote name").
			WithContext("drive", normalized)
	}
	if remote == "" {
		return "", fmt.Errorf("%w: %s", utils.ErrNotMapped, normalized)
	}
	return remote, nil
}

// remoteName is RemoteName for the boolean checks. Every failure reports !ok.
func (p *Prober) remoteName(ctx context.Context, drive string) (string, bool) {
	remote, err := p.RemoteName(drive)
	if err != nil {
		klog.FromContext(ctx).V(4).Info("Treating drive as not mapped", "drive", drive, "err", err)
		return "", false
	}
	return remote, true
}
