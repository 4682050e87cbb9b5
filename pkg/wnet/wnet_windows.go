//go:build windows

package wnet

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
	"k8s.io/klog/v2"
)

var (
	modmpr     = windows.NewLazySystemDLL("mpr.dll")
	modshlwapi = windows.NewLazySystemDLL("shlwapi.dll")

	procWNetAddConnection2W    = modmpr.NewProc("WNetAddConnection2W")
	procWNetCancelConnection2W = modmpr.NewProc("WNetCancelConnection2W")
	procWNetGetConnectionW     = modmpr.NewProc("WNetGetConnectionW")
	procWNetRestoreConnectionW = modmpr.NewProc("WNetRestoreConnectionW")
	procPathIsNetworkPathW     = modshlwapi.NewProc("PathIsNetworkPathW")
)

// maxBufferRetries bounds the ERROR_MORE_DATA grow-and-retry loop
const maxBufferRetries = 3

// netResourceW is the native NETRESOURCEW layout.
type netResourceW struct {
	Scope       uint32
	Type        uint32
	DisplayType uint32
	Usage       uint32
	LocalName   *uint16
	RemoteName  *uint16
	Comment     *uint16
	Provider    *uint16
}

type windowsClient struct{}

func newClient() Client {
	return &windowsClient{}
}

// utf16Ptr converts s, returning nil for the empty string so optional
// parameters are passed as NULL.
func utf16Ptr(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}
	return windows.UTF16PtrFromString(s)
}

func toNative(res NetResource) (*netResourceW, error) {
	local, err := utf16Ptr(res.LocalName)
	if err != nil {
		return nil, fmt.Errorf("invalid local name %q: %w", res.LocalName, err)
	}
	remote, err := utf16Ptr(res.RemoteName)
	if err != nil {
		return nil, fmt.Errorf("invalid remote name %q: %w", res.RemoteName, err)
	}
	comment, err := utf16Ptr(res.Comment)
	if err != nil {
		return nil, err
	}
	provider, err := utf16Ptr(res.Provider)
	if err != nil {
		return nil, err
	}
	return &netResourceW{
		Scope:       uint32(res.Scope),
		Type:        uint32(res.Type),
		DisplayType: uint32(res.DisplayType),
		Usage:       uint32(res.Usage),
		LocalName:   local,
		RemoteName:  remote,
		Comment:     comment,
		Provider:    provider,
	}, nil
}

// callError turns a WNet return value into an *Error, or nil on success.
func callError(op, name string, r1 uintptr) error {
	if r1 == uintptr(windows.ERROR_SUCCESS) {
		return nil
	}
	return &Error{
		Op:   op,
		Name: name,
		Code: Errno(r1),
		Err:  windows.Errno(r1),
	}
}

func findProc(p *windows.LazyProc) error {
	if err := p.Find(); err != nil {
		return fmt.Errorf("%s unavailable: %w", p.Name, err)
	}
	return nil
}

func (c *windowsClient) Connect(localName, remoteName string, opts ConnectOptions) error {
	if err := findProc(procWNetAddConnection2W); err != nil {
		return err
	}

	nr, err := toNative(DiskResource(localName, remoteName))
	if err != nil {
		return err
	}
	password, err := utf16Ptr(opts.Password)
	if err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}
	username, err := utf16Ptr(opts.Username)
	if err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}

	klog.V(4).Infof("WNetAddConnection2 %s -> %s (%s)", localName, remoteName, opts)
	r1, _, _ := procWNetAddConnection2W.Call(
		uintptr(unsafe.Pointer(nr)),
		uintptr(unsafe.Pointer(password)),
		uintptr(unsafe.Pointer(username)),
		uintptr(opts.Flags()),
	)
	return callError("WNetAddConnection2", localName, r1)
}

func (c *windowsClient) Disconnect(name string, force bool) error {
	if err := findProc(procWNetCancelConnection2W); err != nil {
		return err
	}

	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return fmt.Errorf("invalid name %q: %w", name, err)
	}
	var forceArg uintptr
	if force {
		forceArg = 1
	}

	klog.V(4).Infof("WNetCancelConnection2 %s (force=%v)", name, force)
	r1, _, _ := procWNetCancelConnection2W.Call(
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(ConnectUpdateProfile),
		forceArg,
	)
	return callError("WNetCancelConnection2", name, r1)
}

func (c *windowsClient) RemoteName(localName string) (string, error) {
	if err := findProc(procWNetGetConnectionW); err != nil {
		return "", err
	}

	local, err := windows.UTF16PtrFromString(localName)
	if err != nil {
		return "", fmt.Errorf("invalid local name %q: %w", localName, err)
	}

	size := uint32(windows.MAX_PATH)
	for i := 0; i < maxBufferRetries; i++ {
		buf := make([]uint16, size)
		r1, _, _ := procWNetGetConnectionW.Call(
			uintptr(unsafe.Pointer(local)),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&size)),
		)
		if Errno(r1) == ErrorMoreData {
			klog.V(5).Infof("WNetGetConnection %s: buffer too small, growing to %d", localName, size)
			continue
		}
		if err := callError("WNetGetConnection", localName, r1); err != nil {
			return "", err
		}
		return windows.UTF16ToString(buf), nil
	}
	return "", &Error{Op: "WNetGetConnection", Name: localName, Code: ErrorMoreData, Err: windows.ERROR_MORE_DATA}
}

func (c *windowsClient) LogicalDrives() ([]string, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, fmt.Errorf("GetLogicalDrives: %w", err)
	}
	klog.V(5).Infof("GetLogicalDrives mask=0x%08x", mask)

	var drives []string
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) != 0 {
			drives = append(drives, string(rune('A'+i))+":")
		}
	}
	return drives, nil
}

func (c *windowsClient) IsNetworkDrive(localName string) bool {
	root, err := windows.UTF16PtrFromString(localName + `\`)
	if err != nil {
		return false
	}
	if windows.GetDriveType(root) == windows.DRIVE_REMOTE {
		return true
	}
	if procPathIsNetworkPathW.Find() != nil {
		return false
	}
	r1, _, _ := procPathIsNetworkPathW.Call(uintptr(unsafe.Pointer(root)))
	return r1 != 0
}

func (c *windowsClient) RestoreConnection(localName string) error {
	if err := findProc(procWNetRestoreConnectionW); err != nil {
		return err
	}

	local, err := utf16Ptr(localName)
	if err != nil {
		return fmt.Errorf("invalid local name %q: %w", localName, err)
	}

	klog.V(4).Infof("WNetRestoreConnection %s", localName)
	r1, _, _ := procWNetRestoreConnectionW.Call(0, uintptr(unsafe.Pointer(local)))
	return callError("WNetRestoreConnection", localName, r1)
}
