package statusclient

import "fmt"

// StatusError is returned when the metadata service answers with a
// non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("statusclient: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
