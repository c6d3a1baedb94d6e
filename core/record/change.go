package record

import (
	"context"
	"time"
)

type ChangeOp string

const (
	Created ChangeOp = "created"
	Updated ChangeOp = "updated"
	Deleted ChangeOp = "deleted"
)

// Change describes a successful mutation of one or more records of a table.
type Change struct {
	Table string    `json:"table"`
	Op    ChangeOp  `json:"op"`
	IDs   []string  `json:"ids"`
	Actor string    `json:"actor,omitempty"`
	At    time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, change Change) error
	Close() error
}
