//go:build !linux && !windows

package platform

// New reports ErrUnsupported on platforms without a window-system backend.
func New() (Backend, error) {
	return nil, ErrUnsupported
}
