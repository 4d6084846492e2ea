//go:build windows

package group

import "github.com/sandrun/sandrun/internal/group/jobobject"

// New creates a Job-Object-backed Group.
func New() (Group, error) {
	return jobobject.New()
}
