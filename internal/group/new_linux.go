//go:build linux

package group

import (
	"github.com/sandrun/sandrun/internal/group/cgroup"
	"github.com/sandrun/sandrun/internal/group/procfallback"
)

// New creates the platform-appropriate Group, preferring cgroups and
// degrading to the PID-tracking fallback when cgroup setup fails (e.g. no
// delegation inside a nested container).
func New() (Group, error) {
	g, err := cgroup.New()
	if err == nil {
		return g, nil
	}
	return procfallback.New()
}
