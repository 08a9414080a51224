//go:build !chunkopt_debug

package optimizer

// assertFinite is a no-op outside of debug builds; see assert_debug.go.
func assertFinite(float64) {}
