package build

import (
	"gitlab.com/NebulousLabs/errors"
)

// ComposeErrors combines several errors into one. The original errors can
// be extracted from the composition with errors.Contains.
func ComposeErrors(errs ...error) error {
	return errors.Compose(errs...)
}

// ExtendErr adds a context string to an error, preserving the underlying
// error for checks with errors.Contains.
func ExtendErr(s string, err error) error {
	return errors.Extend(err, errors.New(s))
}
