//go:build !windows

package overlay

// New is unavailable outside Windows.
func New(className string, g Geometry) (Surface, error) {
	return nil, ErrUnsupported
}
