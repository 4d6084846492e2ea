//go:build !linux && !windows

package group

import "github.com/sandrun/sandrun/internal/group/procfallback"

// New creates the PID-tracking fallback Group on platforms with neither
// cgroups nor Job Objects (e.g. macOS, BSD).
func New() (Group, error) {
	return procfallback.New()
}
