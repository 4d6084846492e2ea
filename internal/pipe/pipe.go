// Package pipe implements the typed read/write pipe endpoints a spawned
// process is wired to: a native anonymous pipe, a file opened in read-only
// or write-only mode, or the platform null device.
package pipe

import (
	"os"

	"github.com/sandrun/sandrun/internal/sperr"
)

// ShareMode controls whether other processes may concurrently open the same
// path while this endpoint holds it.
type ShareMode int

const (
	// Shared permits concurrent opens of the same path by other processes.
	Shared ShareMode = iota
	// Exclusive denies concurrent opens of the same path on Windows. On Unix
	// it only makes a creating open fail when the file already exists; it
	// does not stop other processes from opening the path (see openShared).
	Exclusive
)

// ReadPipe is the reading end of a pipe, or a file opened read-only.
type ReadPipe struct {
	f *os.File
}

// WritePipe is the writing end of a pipe, or a file opened write-only.
type WritePipe struct {
	f      *os.File
	isFile bool
}

// Create constructs a native anonymous pipe, returning its read and write
// ends.
func Create() (ReadPipe, WritePipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return ReadPipe{}, WritePipe{}, sperr.OS("pipe.create", err)
	}
	return ReadPipe{f: r}, WritePipe{f: w, isFile: false}, nil
}

// OpenRead opens path in read-only mode under the given share mode.
func OpenRead(path string, mode ShareMode) (ReadPipe, error) {
	f, err := openShared(path, os.O_RDONLY, mode)
	if err != nil {
		return ReadPipe{}, sperr.OS("pipe.open_read", err)
	}
	return ReadPipe{f: f}, nil
}

// OpenWrite opens path in write-only (create/truncate) mode under the given
// share mode.
func OpenWrite(path string, mode ShareMode) (WritePipe, error) {
	f, err := openShared(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return WritePipe{}, sperr.OS("pipe.open_write", err)
	}
	return WritePipe{f: f, isFile: true}, nil
}

// NullRead returns a ReadPipe bound to the OS null device: reads always
// return 0 bytes, io.EOF.
func NullRead() (ReadPipe, error) {
	f, err := os.Open(os.DevNull)
	if err != nil {
		return ReadPipe{}, sperr.OS("pipe.null_read", err)
	}
	return ReadPipe{f: f}, nil
}

// NullWrite returns a WritePipe bound to the OS null device: writes always
// succeed and discard their payload.
func NullWrite() (WritePipe, error) {
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return WritePipe{}, sperr.OS("pipe.null_write", err)
	}
	return WritePipe{f: f, isFile: true}, nil
}

// Read implements io.Reader.
func (p ReadPipe) Read(buf []byte) (int, error) {
	n, err := p.f.Read(buf)
	if err != nil && err.Error() != "EOF" {
		return n, sperr.IO("pipe.read", err)
	}
	return n, err
}

// File exposes the underlying *os.File, e.g. to hand to exec.Cmd.Stdin.
func (p ReadPipe) File() *os.File { return p.f }

// Close releases the underlying descriptor.
func (p ReadPipe) Close() error {
	if p.f == nil {
		return nil
	}
	return p.f.Close()
}

// Write implements io.Writer.
func (p WritePipe) Write(buf []byte) (int, error) {
	n, err := p.f.Write(buf)
	if err != nil {
		return n, sperr.IO("pipe.write", err)
	}
	return n, nil
}

// Flush forces any OS-buffered data to the underlying file.
func (p WritePipe) Flush() error {
	if p.f == nil {
		return nil
	}
	if err := p.f.Sync(); err != nil {
		return sperr.IO("pipe.flush", err)
	}
	return nil
}

// IsFile distinguishes a file-backed endpoint (OpenWrite) from a
// pipe-backed one (Create), which callers need to choose between a
// blocking and non-blocking drain strategy at shutdown.
func (p WritePipe) IsFile() bool { return p.isFile }

// File exposes the underlying *os.File, e.g. to hand to exec.Cmd.Stdout.
func (p WritePipe) File() *os.File { return p.f }

// Close releases the underlying descriptor.
func (p WritePipe) Close() error {
	if p.f == nil {
		return nil
	}
	return p.f.Close()
}
