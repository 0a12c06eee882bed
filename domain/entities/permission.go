package entities

// Named channels installed by the host.
const (
	ChannelFsInputStream  = "FsInputStream"
	ChannelFsOutputStream = "FsOutputStream"
	ChannelObjectBridge   = "ObjectBridge"
)

// Permission strings read from the manifest.
const (
	PermissionFsInputStream  = "wxu.permission.FS_INPUT_STREAM"
	PermissionFsOutputStream = "wxu.permission.FS_OUTPUT_STREAM"
)

// channelPermissions maps gated channels to the permission that installs them.
// Channels not listed here are not permission gated.
var channelPermissions = map[string]string{
	ChannelFsInputStream:  PermissionFsInputStream,
	ChannelFsOutputStream: PermissionFsOutputStream,
}

// PermissionFor returns the permission string gating the named channel.
func PermissionFor(channel string) (string, bool) {
	p, ok := channelPermissions[channel]
	return p, ok
}

// KnownPermission reports whether p is a permission this bridge understands.
func KnownPermission(p string) bool {
	for _, known := range channelPermissions {
		if known == p {
			return true
		}
	}
	return false
}

// PermissionSet is the immutable set of flags granted by a manifest.
type PermissionSet struct {
	flags map[string]bool
}

// NewPermissionSet builds a set from a list of permission strings.
func NewPermissionSet(perms ...string) PermissionSet {
	flags := make(map[string]bool, len(perms))
	for _, p := range perms {
		flags[p] = true
	}
	return PermissionSet{flags: flags}
}

// Has reports whether the permission flag is present.
func (s PermissionSet) Has(perm string) bool {
	return s.flags[perm]
}

// AllowsChannel reports whether the named channel may be installed.
func (s PermissionSet) AllowsChannel(channel string) bool {
	perm, gated := PermissionFor(channel)
	if !gated {
		return true
	}
	return s.Has(perm)
}
