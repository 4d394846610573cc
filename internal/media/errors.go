package media

import (
	"errors"
	"fmt"
)

// ErrMediaNotFound means no recent message with media has the requested ID.
var ErrMediaNotFound = errors.New("media not found")

// FetchError reports a failure to retrieve media from its source URL.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
