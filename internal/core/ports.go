// Package core runs collection cycles: feed in, flat rows out.
package core

import (
	"context"
	"time"

	"telemetry-collector/internal/domain"
)

// Feed opens a subscription to one chain on the telemetry feed.
type Feed interface {
	Connect(ctx context.Context, genesisHash string) (FeedSession, error)
}

// FeedSession is a scoped feed connection. Close must be called on every
// path once the session is no longer needed.
type FeedSession interface {
	Nodes(ctx context.Context) ([]domain.NodeRecord, error)
	Close() error
}

// Sink persists one cycle's rows. rows is never empty.
type Sink interface {
	Name() string
	Write(ctx context.Context, collectedAt time.Time, rows []domain.FlatRow) error
}
