package confloader

import "errors"

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: ReadBytes not supported by map provider, use Read() instead")

// mapProvider adapts a plain map to the koanf.Provider interface so that
// LoadMap can feed flag overrides and test fixtures through the same
// merge path as files and environment variables.
//
// koanf probes ReadBytes first and falls back to Read; map data has no
// byte form, so only Read is meaningful here.
type mapProvider map[string]any

// ReadBytes always fails; map data is consumed through Read.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the underlying configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
