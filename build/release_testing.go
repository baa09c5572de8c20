//go:build testing
// +build testing

package build

const (
	// Release is set to "testing" when the testing build tag is provided.
	// The test suite is expected to be run with this tag so that the
	// timing constants collapse to values a test can wait out.
	Release = "testing"

	// DEBUG is always enabled during testing so that sanity check
	// violations panic instead of logging.
	DEBUG = true
)
