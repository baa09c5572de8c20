//go:build !testing && !dev
// +build !testing,!dev

package build

const (
	// Release is set to "standard" for release builds of the Scatter
	// daemons.
	Release = "standard"

	// DEBUG disables the expensive sanity checks in release builds.
	DEBUG = false
)
