// Package audit reconciles stored story objects with story records.
package audit

import (
	"context"
	"time"
)

// Report is the outcome of one reconciliation run.
type Report struct {
	Checked int
	Orphans []string
	At      time.Time
}

//go:generate go run go.uber.org/mock/mockgen -source=audit.go -destination=mocks/mock.go
type Auditor interface {
	// Run compares the story bucket with the story table once.
	Run(ctx context.Context) (*Report, error)
	// Schedule runs the audit periodically until ctx is done.
	Schedule(ctx context.Context) error
}
