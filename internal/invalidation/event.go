// Package invalidation describes catalog change events that make cached
// product listings stale.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Event struct {
	Version   int       `json:"version"`
	Op        string    `json:"op"`
	ProductID string    `json:"product_id"`
	Handle    string    `json:"handle,omitempty"`
	Revision  uint64    `json:"revision,omitempty"`
	TS        time.Time `json:"ts"`
	Source    string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("op must be create|update|delete")
	}
	if strings.TrimSpace(e.ProductID) == "" {
		return fmt.Errorf("product_id is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
