package storefront

import (
	"fmt"
	"strings"
)

// DataIntegrityError means the storefront answered without the data object
// the operation requires. An empty product list is not an integrity error.
type DataIntegrityError struct {
	Operation string
	Reason    string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("storefront %s: data integrity: %s", e.Operation, e.Reason)
}

// UpstreamError covers transport failures, non-2xx answers, undecodable
// bodies and GraphQL error arrays.
type UpstreamError struct {
	Operation string
	Status    int
	Messages  []string
	Err       error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "storefront %s", e.Operation)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
