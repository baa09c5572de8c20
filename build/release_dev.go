//go:build dev && !testing
// +build dev,!testing

package build

const (
	// Release is set to "dev" when the dev build tag is provided. Dev
	// builds shrink the protocol timing constants so that a local cluster
	// can be exercised without waiting out production timeouts.
	Release = "dev"

	// DEBUG enables the sanity checks in dev builds.
	DEBUG = true
)
