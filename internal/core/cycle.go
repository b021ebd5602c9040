package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"telemetry-collector/internal/core/flatten"
	"telemetry-collector/internal/logger"
	"telemetry-collector/internal/pkg/clock"
)

var ErrNoNodes = errors.New("telemetry feed returned no nodes")

type Cycle struct {
	feed    Feed
	genesis string
	sinks   []Sink
	clock   clock.Clock
	log     logger.Logger
}

type Result struct {
	ID          string
	CollectedAt time.Time
	Nodes       int
}

func NewCycle(feed Feed, genesis string, sinks []Sink, c clock.Clock, log logger.Logger) *Cycle {
	return &Cycle{
		feed:    feed,
		genesis: genesis,
		sinks:   sinks,
		clock:   c,
		log:     log,
	}
}

// Run performs one collection: connect, collect, flatten, write. Sinks
// run in order and the first failure ends the cycle.
func (c *Cycle) Run(ctx context.Context) (res Result, err error) {
	res.ID = uuid.NewString()
	log := c.log.With("cycle_id", res.ID)
	start := c.clock.Now()

	log.Info("cycle: started", "genesis", c.genesis)

	session, err := c.feed.Connect(ctx, c.genesis)
	if err != nil {
		return res, fmt.Errorf("connecting to feed: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn("cycle: feed session close", "error", closeErr)
		}
	}()

	nodes, err := session.Nodes(ctx)
	if err != nil {
		return res, fmt.Errorf("collecting nodes: %w", err)
	}
	if len(nodes) == 0 {
		return res, ErrNoNodes
	}

	res.CollectedAt = c.clock.Now().UTC()
	res.Nodes = len(nodes)

	rows := flatten.NodesToRows(nodes, res.CollectedAt)

	for _, sink := range c.sinks {
		if err := sink.Write(ctx, res.CollectedAt, rows); err != nil {
			return res, fmt.Errorf("writing %s: %w", sink.Name(), err)
		}
		log.Debug("cycle: sink written", "sink", sink.Name(), "rows", len(rows))
	}

	log.Info("cycle: finished", "nodes", res.Nodes, "time", c.clock.Now().Sub(start))
	return res, nil
}
