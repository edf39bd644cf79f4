package conformance

import "errors"

var (
	// ErrUnsupported marks a capability the device does not offer. It turns
	// into a skip rather than a failure.
	ErrUnsupported = errors.New("conformance: unsupported")

	// ErrMismatch marks a verification failure. Mismatches fail the sub-case
	// they occur in but never abort the remaining sub-cases.
	ErrMismatch = errors.New("conformance: mismatch")
)

// ResultFor maps an error returned by a program step to its outcome:
// nil passes, ErrUnsupported skips, everything else fails.
func ResultFor(err error) Result {
	switch {
	case err == nil:
		return Pass
	case errors.Is(err, ErrUnsupported):
		return Skip
	default:
		return Fail
	}
}

// IsSetupError reports whether err aborts the whole program. Mismatches and
// unsupported capabilities are local to a sub-case; any other error means the
// remaining checks would be meaningless.
func IsSetupError(err error) bool {
	return err != nil && !errors.Is(err, ErrMismatch) && !errors.Is(err, ErrUnsupported)
}
