//go:build !unix

package arena

// NewMmap falls back to Go memory where anonymous mappings are unavailable.
func NewMmap(size int) (Arena, error) {
	return NewGo(size), nil
}
