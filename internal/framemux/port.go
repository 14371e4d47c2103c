package framemux

import "io"

// Port is the minimal interface needed for an estimator link: frames are
// read as newline-delimited JSON and commands are written one per line.
// This abstraction enables unit testing without real hardware.
type Port interface {
	io.ReadWriter
	io.Closer
}
