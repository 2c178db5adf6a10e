package sftpcore

import "errors"

// Sentinel errors for the taxonomy in the error handling design.
// Backends wrap these with fmt.Errorf("%w: ...", ...) so callers can
// classify failures with errors.Is regardless of backend message text.
var (
	ErrInvalidArgument = errors.New("sftpcore: invalid argument")
	ErrNotConnected    = errors.New("sftpcore: not connected")
	ErrNotFound        = errors.New("sftpcore: not found")
	ErrPermission      = errors.New("sftpcore: permission denied")
	ErrTransport       = errors.New("sftpcore: transport error")
	ErrUnsupported     = errors.New("sftpcore: unsupported operation")
)
