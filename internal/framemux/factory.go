package framemux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealMux creates a Mux instance backed by an estimator device at the given
// serial path using the provided options.
func NewRealMux(path string, opts PortOptions) (*Mux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open estimator port %s: %w", path, err)
	}

	return New[serial.Port](port), nil
}
