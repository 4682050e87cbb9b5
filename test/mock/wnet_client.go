package mock

import (
	"sort"
	"sync"

	"git.srvlab.io/whiskey/mapdrive/pkg/wnet"
)

// MockClient is a mock implementation of wnet.Client for testing
type MockClient struct {
	mu sync.Mutex

	// Mapped drives: "S:" -> "\\host\share"
	connected map[string]string

	// Local (non-network) drives reported by LogicalDrives
	local map[string]bool

	// Error injection. connectQueue is consumed one entry per Connect call
	// before the injector or connectErr applies.
	connectQueue  []error
	injector      *ErrorInjector
	connectErr    error
	disconnectErr error
	remoteNameErr error
	drivesErr     error
	restoreErr    error

	// Call tracking
	connectCalls    []ConnectCall
	disconnectCalls []DisconnectCall
	restoreCalls    []string
	calls           []string
}

// ConnectCall tracks a Connect operation
type ConnectCall struct {
	LocalName  string
	RemoteName string
	Options    wnet.ConnectOptions
}

// DisconnectCall tracks a Disconnect operation
type DisconnectCall struct {
	Name  string
	Force bool
}

// NewMockClient creates a new mock client with no drives
func NewMockClient() *MockClient {
	return &MockClient{
		connected: make(map[string]string),
		local:     make(map[string]bool),
	}
}

// Connect implements wnet.Client
func (m *MockClient) Connect(localName, remoteName string, opts wnet.ConnectOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connectCalls = append(m.connectCalls, ConnectCall{
		LocalName:  localName,
		RemoteName: remoteName,
		Options:    opts,
	})
	m.calls = append(m.calls, "connect "+localName)

	if len(m.connectQueue) > 0 {
		err := m.connectQueue[0]
		m.connectQueue = m.connectQueue[1:]
		if err != nil {
			return err
		}
	} else if m.injector != nil {
		if fail, code := m.injector.ShouldFailConnect(); fail {
			return &wnet.Error{Op: "WNetAddConnection2", Name: localName, Code: code}
		}
	} else if m.connectErr != nil {
		return m.connectErr
	}

	if _, exists := m.connected[localName]; exists {
		return &wnet.Error{Op: "WNetAddConnection2", Name: localName, Code: wnet.ErrorAlreadyAssigned}
	}
	m.connected[localName] = remoteName
	return nil
}

// Disconnect implements wnet.Client
func (m *MockClient) Disconnect(name string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.disconnectCalls = append(m.disconnectCalls, DisconnectCall{Name: name, Force: force})
	m.calls = append(m.calls, "disconnect "+name)

	if m.disconnectErr != nil {
		return m.disconnectErr
	}
	if _, exists := m.connected[name]; !exists {
		return &wnet.Error{Op: "WNetCancelConnection2", Name: name, Code: wnet.ErrorNotConnected}
	}
	delete(m.connected, name)
	return nil
}

// RemoteName implements wnet.Client
func (m *MockClient) RemoteName(localName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "remote-name "+localName)

	if m.remoteNameErr != nil {
		return "", m.remoteNameErr
	}
	remote, exists := m.connected[localName]
	if !exists {
		return "", &wnet.Error{Op: "WNetGetConnection", Name: localName, Code: wnet.ErrorNotConnected}
	}
	return remote, nil
}

// LogicalDrives implements wnet.Client
func (m *MockClient) LogicalDrives() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.drivesErr != nil {
		return nil, m.drivesErr
	}

	var drives []string
	for d := range m.local {
		drives = append(drives, d)
	}
	for d := range m.connected {
		drives = append(drives, d)
	}
	sort.Strings(drives)
	return drives, nil
}

// IsNetworkDrive implements wnet.Client
func (m *MockClient) IsNetworkDrive(localName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.connected[localName]
	return exists
}

// RestoreConnection implements wnet.Client
func (m *MockClient) RestoreConnection(localName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.restoreCalls = append(m.restoreCalls, localName)
	m.calls = append(m.calls, "restore "+localName)
	return m.restoreErr
}

// SetMapped records an existing mapping
func (m *MockClient) SetMapped(localName, remoteName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected[localName] = remoteName
}

// AddLocalDrive adds a non-network drive to LogicalDrives
func (m *MockClient) AddLocalDrive(localName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local[localName] = true
}

// FailConnect makes the next n Connect calls fail with err
func (m *MockClient) FailConnect(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.connectQueue = append(m.connectQueue, err)
	}
}

// SetErrorInjector routes Connect failures through inj (nil disables it)
func (m *MockClient) SetErrorInjector(inj *ErrorInjector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.injector = inj
}

// SetConnectError makes every Connect call (after any queued ones) fail
func (m *MockClient) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// SetDisconnectError makes Disconnect fail
func (m *MockClient) SetDisconnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectErr = err
}

// SetRemoteNameError makes RemoteName fail
func (m *MockClient) SetRemoteNameError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteNameErr = err
}

// SetLogicalDrivesError makes LogicalDrives fail
func (m *MockClient) SetLogicalDrivesError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivesErr = err
}

// SetRestoreError makes RestoreConnection fail
func (m *MockClient) SetRestoreError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreErr = err
}

// ConnectCalls returns a copy of all Connect calls
func (m *MockClient) ConnectCalls() []ConnectCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConnectCall(nil), m.connectCalls...)
}

// DisconnectCalls returns a copy of all Disconnect calls
func (m *MockClient) DisconnectCalls() []DisconnectCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DisconnectCall(nil), m.disconnectCalls...)
}

// RestoreCalls returns a copy of all RestoreConnection calls
func (m *MockClient) RestoreCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.restoreCalls...)
}

// Calls returns every mutating or lookup call in order, e.g. "connect S:"
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// IsMapped reports whether the mock currently holds a mapping for localName
func (m *MockClient) IsMapped(localName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.connected[localName]
	return exists
}
