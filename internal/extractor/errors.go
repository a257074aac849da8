package extractor

import "errors"

// ErrMissingProfile means the page has no profile header: the account does
// not exist, is suspended, or the mirror served an error page.
var ErrMissingProfile = errors.New("profile not found on page")

// MissingProfileError carries the mirror's own explanation when one was
// shown. It matches ErrMissingProfile with errors.Is.
type MissingProfileError struct {
	Reason string
}

func (e *MissingProfileError) Error() string {
	if e.Reason == "" {
		return ErrMissingProfile.Error()
	}
	return ErrMissingProfile.Error() + ": " + e.Reason
}

func (e *MissingProfileError) Is(target error) bool {
	return target == ErrMissingProfile
}
