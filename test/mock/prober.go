package mock

import (
	"context"
	"sync"
	"time"
)

// MockProber is a scripted drive state prober for mapper tests
type MockProber struct {
	mu sync.Mutex

	online map[string]bool
	mapped map[string]bool

	onlineCalls []string
	mappedCalls []string
}

// NewMockProber creates a prober that reports every drive as offline and unmapped
func NewMockProber() *MockProber {
	return &MockProber{
		online: make(map[string]bool),
		mapped: make(map[string]bool),
	}
}

// SetOnline sets the IsOnline answer for a drive
func (p *MockProber) SetOnline(drive string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[drive] = online
}

// SetMapped sets the IsMapped answer for a drive
func (p *MockProber) SetMapped(drive string, mapped bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mapped[drive] = mapped
}

// IsOnline implements the mapper's prober interface
func (p *MockProber) IsOnline(ctx context.Context, drive string, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onlineCalls = append(p.onlineCalls, drive)
	return p.online[drive]
}

// IsMapped implements the mapper's prober interface
func (p *MockProber) IsMapped(ctx context.Context, drive string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mappedCalls = append(p.mappedCalls, drive)
	return p.mapped[drive]
}

// OnlineCalls returns the drives IsOnline was asked about
func (p *MockProber) OnlineCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.onlineCalls...)
}

// MappedCalls returns the drives IsMapped was asked about
func (p *MockProber) MappedCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.mappedCalls...)
}
