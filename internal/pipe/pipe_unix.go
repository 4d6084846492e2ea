//go:build !windows

package pipe

import "os"

// openShared opens path with the given flags. Unix has no mandatory-locking
// equivalent of Windows' sharing flags, so Exclusive is only approximated:
// for a newly created file it adds O_EXCL, making the create itself fail if
// the file already exists. It does not prevent another process from opening
// the file afterward.
func openShared(path string, flags int, mode ShareMode) (*os.File, error) {
	if mode == Exclusive && flags&os.O_CREATE != 0 {
		flags |= os.O_EXCL
	}
	return os.OpenFile(path, flags, 0o644)
}
