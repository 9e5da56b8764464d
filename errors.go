package herdcache

import (
	"fmt"
)

// RemoveError reports a Remove call that failed against one or both stores.
type RemoveError struct {
	Key        string
	LocalErr   error
	BackingErr error
}

func (e *RemoveError) Error() string {
	switch {
	case e.LocalErr != nil && e.BackingErr != nil:
		return fmt.Sprintf("remove %q failed: local and backing delete failed: local=%v; backing=%v",
			e.Key, e.LocalErr, e.BackingErr)
	case e.LocalErr != nil:
		return fmt.Sprintf("remove %q: local delete failed: %v", e.Key, e.LocalErr)
	case e.BackingErr != nil:
		return fmt.Sprintf("remove %q: backing delete failed: %v", e.Key, e.BackingErr)
	default:
		return fmt.Sprintf("remove %q: unknown error", e.Key)
	}
}

func (e *RemoveError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.LocalErr != nil {
		errs = append(errs, e.LocalErr)
	}
	if e.BackingErr != nil {
		errs = append(errs, e.BackingErr)
	}
	return errs
}

// PayloadTooLargeError reports a serialized frame exceeding MaxPayloadBytes.
// The value is returned to the caller but not cached.
type PayloadTooLargeError struct {
	Key   string
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("entry %q too large: %d > %d bytes", e.Key, e.Size, e.Limit)
}
