//go:build windows

package pipe

import (
	"os"

	"golang.org/x/sys/windows"
)

// openShared opens path using CreateFile directly so Exclusive can deny
// FILE_SHARE_READ/WRITE to other processes, which os.OpenFile cannot
// express.
func openShared(path string, flags int, mode ShareMode) (*os.File, error) {
	var access uint32
	switch {
	case flags&os.O_WRONLY != 0:
		access = windows.GENERIC_WRITE
	default:
		access = windows.GENERIC_READ
	}

	share := uint32(windows.FILE_SHARE_READ | windows.FILE_SHARE_WRITE)
	if mode == Exclusive {
		share = 0
	}

	var createMode uint32 = windows.OPEN_EXISTING
	if flags&os.O_CREATE != 0 {
		createMode = windows.CREATE_ALWAYS
	}

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(pathPtr, access, share, nil, createMode, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(h), path), nil
}
