//go:build !windows

package wnet

type unsupportedClient struct{}

func newClient() Client {
	return unsupportedClient{}
}

func unsupported(op, name string) error {
	return &Error{Op: op, Name: name, Code: ErrorNotSupported, Err: ErrUnsupported}
}

func (unsupportedClient) Connect(localName, remoteName string, opts ConnectOptions) error {
	return unsupported("WNetAddConnection2", localName)
}

func (unsupportedClient) Disconnect(name string, force bool) error {
	return unsupported("WNetCancelConnection2", name)
}

func (unsupportedClient) RemoteName(localName string) (string, error) {
	return "", unsupported("WNetGetConnection", localName)
}

func (unsupportedClient) LogicalDrives() ([]string, error) {
	return nil, unsupported("GetLogicalDrives", "")
}

func (unsupportedClient) IsNetworkDrive(localName string) bool {
	return false
}

func (unsupportedClient) RestoreConnection(localName string) error {
	return unsupported("WNetRestoreConnection", localName)
}
