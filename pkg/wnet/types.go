package wnet

import (
	"fmt"
	"strings"
)

// ConnectFlags are the dwFlags bits accepted by WNetAddConnection2 and
// WNetCancelConnection2.
type ConnectFlags uint32

const (
	// ConnectUpdateProfile remembers the connection and restores it at logon (CONNECT_UPDATE_PROFILE)
	ConnectUpdateProfile ConnectFlags = 0x00000001
	// ConnectUpdateRecent adds the connection to the recent list (CONNECT_UPDATE_RECENT)
	ConnectUpdateRecent ConnectFlags = 0x00000002
	// ConnectTemporary marks the connection as temporary (CONNECT_TEMPORARY)
	ConnectTemporary ConnectFlags = 0x00000004
	// ConnectInteractive allows the OS to prompt for credentials (CONNECT_INTERACTIVE)
	ConnectInteractive ConnectFlags = 0x00000008
	// ConnectPrompt forces the credential prompt (CONNECT_PROMPT)
	ConnectPrompt ConnectFlags = 0x00000010
	// ConnectRedirect forces redirection of a local device (CONNECT_REDIRECT)
	ConnectRedirect ConnectFlags = 0x00000080
	// ConnectCurrentMedia uses only the current transport (CONNECT_CURRENT_MEDIA)
	ConnectCurrentMedia ConnectFlags = 0x00000200
	// ConnectCommandLine prompts on the command line instead of a dialog (CONNECT_COMMANDLINE)
	ConnectCommandLine ConnectFlags = 0x00000800
	// ConnectCmdSaveCred saves supplied credentials for later use (CONNECT_CMD_SAVECRED)
	ConnectCmdSaveCred ConnectFlags = 0x00001000
	// ConnectCredReset resets saved credentials (CONNECT_CRED_RESET)
	ConnectCredReset ConnectFlags = 0x00002000

	// ConnectNone requests a plain, non-persistent connection
	ConnectNone ConnectFlags = 0
)

var connectFlagNames = []struct {
	flag ConnectFlags
	name string
}{
	{ConnectUpdateProfile, "UPDATE_PROFILE"},
	{ConnectUpdateRecent, "UPDATE_RECENT"},
	{ConnectTemporary, "TEMPORARY"},
	{ConnectInteractive, "INTERACTIVE"},
	{ConnectPrompt, "PROMPT"},
	{ConnectRedirect, "REDIRECT"},
	{ConnectCurrentMedia, "CURRENT_MEDIA"},
	{ConnectCommandLine, "COMMANDLINE"},
	{ConnectCmdSaveCred, "CMD_SAVECRED"},
	{ConnectCredReset, "CRED_RESET"},
}

// Has reports whether all bits of flag are set.
func (f ConnectFlags) Has(flag ConnectFlags) bool {
	return f&flag == flag
}

func (f ConnectFlags) String() string {
	if f == ConnectNone {
		return "NONE"
	}
	var parts []string
	rest := f
	for _, n := range connectFlagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ResourceType is NETRESOURCE.dwType.
type ResourceType uint32

const (
	ResourceTypeAny   ResourceType = 0
	ResourceTypeDisk  ResourceType = 1
	ResourceTypePrint ResourceType = 2
)

// ResourceScope is NETRESOURCE.dwScope.
type ResourceScope uint32

const (
	ResourceScopeConnected  ResourceScope = 1
	ResourceScopeGlobalNet  ResourceScope = 2
	ResourceScopeRemembered ResourceScope = 3
)

// DisplayType is NETRESOURCE.dwDisplayType.
type DisplayType uint32

const (
	DisplayTypeGeneric DisplayType = 0
	DisplayTypeDomain  DisplayType = 1
	DisplayTypeServer  DisplayType = 2
	DisplayTypeShare   DisplayType = 3
)

// ResourceUsage is NETRESOURCE.dwUsage.
type ResourceUsage uint32

const (
	ResourceUsageConnectable ResourceUsage = 1
	ResourceUsageContainer   ResourceUsage = 2
)

// NetResource is the Go-side form of NETRESOURCE. The Windows implementation
// converts it to the native layout at the call boundary.
type NetResource struct {
	Scope       ResourceScope
	Type        ResourceType
	DisplayType DisplayType
	Usage       ResourceUsage
	LocalName   string
	RemoteName  string
	Comment     string
	Provider    string
}

// DiskResource returns the record used to map a share to a local drive.
func DiskResource(localName, remoteName string) NetResource {
	return NetResource{
		Type:       ResourceTypeDisk,
		LocalName:  localName,
		RemoteName: remoteName,
	}
}

// ConnectOptions selects the connect flags and optional credentials.
type ConnectOptions struct {
	// Persist restores the mapping at next logon
	Persist bool

	// SaveCredentials asks the OS to remember Username/Password
	SaveCredentials bool

	Username string
	Password string
}

// Flags returns the dwFlags value for these options.
func (o ConnectOptions) Flags() ConnectFlags {
	flags := ConnectNone
	if o.Persist {
		flags |= ConnectUpdateProfile
	}
	if o.SaveCredentials {
		flags |= ConnectCmdSaveCred
	}
	return flags
}

// String never includes the password.
func (o ConnectOptions) String() string {
	user := o.Username
	if user == "" {
		user = "<current>"
	}
	return fmt.Sprintf("user=%s flags=%s", user, o.Flags())
}

// Client is the set of OS networking calls the mapper and prober need.
type Client interface {
	// Connect maps remoteName (\\host\share) to localName (X:)
	Connect(localName, remoteName string, opts ConnectOptions) error

	// Disconnect tears down the mapping for a drive or a share path. The
	// remembered profile entry is removed as well.
	Disconnect(name string, force bool) error

	// RemoteName returns the UNC path a local drive is connected to
	RemoteName(localName string) (string, error)

	// LogicalDrives returns every drive currently present, as "X:"
	LogicalDrives() ([]string, error)

	// IsNetworkDrive reports whether a drive is backed by a network share
	IsNetworkDrive(localName string) bool

	// RestoreConnection reconnects a remembered mapping
	RestoreConnection(localName string) error
}

// NewClient returns the Client for the current platform.
func NewClient() Client {
	return newClient()
}
