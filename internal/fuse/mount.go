package fuse

import (
	"fmt"
	"log/slog"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/radryc/gitfs/internal/gitfs"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the hierarchy is mounted.
	Mountpoint string

	// Engine answers all filesystem operations.
	Engine *gitfs.FS

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Debug enables the FUSE protocol trace.
	Debug bool

	// Logger receives diagnostic messages. If nil, slog.Default().
	Logger *slog.Logger
}

// Mount mounts the hierarchy at the configured mountpoint. The caller
// must call Unmount on the returned server when done. Entry and
// attribute timeouts are left at zero so the kernel re-asks on every
// access, and the mount is registered read-only so the kernel refuses
// write attempts before they reach the adapter.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	root := NewRoot(options.Engine, options.Logger)

	server, err := fs.Mount(options.Mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      options.Debug,
			FsName:     "gitfs",
			Name:       "gitfs",
			AllowOther: options.AllowOther,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", options.Mountpoint, err)
	}
	return server, nil
}
