package acquire

import "fmt"

// UnreachableError marks ordinary acquisition failure: network errors, auth
// rejection, deleted or private repositories, rate limiting, and post-fetch
// hash mismatches. The resolver converts it into Reachable=false on the
// result instead of propagating, since batch runs over thousands of packages
// must tolerate scattered unreachability. Anything else returned by a
// strategy is treated as genuine misuse and surfaces to the caller.
type UnreachableError struct {
	Op     string
	Source string
	Err    error
}

func (e *UnreachableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s unreachable", e.Op, e.Source)
	}
	return fmt.Sprintf("%s: %s unreachable: %v", e.Op, e.Source, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func unreachable(op, source string, err error) *UnreachableError {
	return &UnreachableError{Op: op, Source: source, Err: err}
}
