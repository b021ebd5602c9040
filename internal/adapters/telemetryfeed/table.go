package telemetryfeed

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"telemetry-collector/internal/domain"
	"telemetry-collector/internal/logger"
	"telemetry-collector/internal/pkg/clock"
)

// Table is the feed's view of the subscribed chain, keyed by feed node id.
//
// Records handed out by Snapshot share sub-record pointers with the table,
// so Apply never mutates a sub-record in place: it builds a replacement.
type Table struct {
	mu    sync.RWMutex
	nodes map[int64]*domain.NodeRecord
	clock clock.Clock
	log   logger.Logger
}

func NewTable(c clock.Clock, log logger.Logger) *Table {
	return &Table{
		nodes: make(map[int64]*domain.NodeRecord),
		clock: c,
		log:   log,
	}
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Snapshot returns the current nodes ordered by id.
func (t *Table) Snapshot() []domain.NodeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]int64, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]domain.NodeRecord, len(ids))
	for i, id := range ids {
		out[i] = *t.nodes[id]
	}
	return out
}

func (t *Table) Apply(msg Message) error {
	switch msg.Action {
	case ActionAddedNode:
		return t.addNode(msg.Payload)
	case ActionRemovedNode:
		id := asInt(msg.Payload)
		if id == nil {
			return fmt.Errorf("removed node: bad id %s", msg.Payload)
		}
		t.mu.Lock()
		delete(t.nodes, *id)
		t.mu.Unlock()
		return nil
	case ActionStaleNode:
		id := asInt(msg.Payload)
		if id == nil {
			return fmt.Errorf("stale node: bad id %s", msg.Payload)
		}
		return t.update(*id, func(n *domain.NodeRecord) {
			n.Stale = domain.Ptr(true)
		})
	case ActionLocatedNode:
		return t.updateFromArray(msg, func(n *domain.NodeRecord, p []json.RawMessage) {
			n.Location = &domain.Location{
				Latitude:  asFloat(at(p, 1)),
				Longitude: asFloat(at(p, 2)),
				City:      asString(at(p, 3)),
			}
		})
	case ActionImportedBlock:
		return t.updateFromArray(msg, func(n *domain.NodeRecord, p []json.RawMessage) {
			n.Block = mergeBlock(n.Block, at(p, 1))
		})
	case ActionFinalizedBlock:
		return t.updateFromArray(msg, func(n *domain.NodeRecord, p []json.RawMessage) {
			b := cloneBlock(n.Block)
			b.FinalizedHeight = asInt(at(p, 1))
			b.FinalizedHash = asString(at(p, 2))
			n.Block = b
		})
	case ActionNodeStats:
		return t.updateFromArray(msg, func(n *domain.NodeRecord, p []json.RawMessage) {
			applyStats(n, at(p, 1))
		})
	case ActionNodeHardware:
		return t.updateFromArray(msg, func(n *domain.NodeRecord, p []json.RawMessage) {
			n.Hardware = parseHardware(at(p, 1))
		})
	case ActionNodeIOUpdate:
		return t.updateFromArray(msg, func(n *domain.NodeRecord, p []json.RawMessage) {
			n.IO = parseIO(at(p, 1))
		})
	case ActionFeedVersion:
		t.log.Debug("feed version", "version", string(msg.Payload))
		return nil
	case ActionSubscribedTo:
		t.log.Info("subscribed to chain", "genesis", string(msg.Payload))
		return nil
	default:
		return nil
	}
}

// addNode handles [id, details, stats, io, hardware, block, location, startupTime].
func (t *Table) addNode(payload json.RawMessage) error {
	p, ok := asArray(payload)
	if !ok {
		return fmt.Errorf("added node: payload is not an array")
	}
	id := asInt(at(p, 0))
	if id == nil {
		return fmt.Errorf("added node: bad id %s", at(p, 0))
	}

	node := &domain.NodeRecord{
		ID:          id,
		Stale:       domain.Ptr(false),
		StartupTime: asText(at(p, 7)),
		LastUpdated: domain.Ptr(t.clock.Now().UnixMilli()),
		IO:          parseIO(at(p, 3)),
		Hardware:    parseHardware(at(p, 4)),
		Block:       mergeBlock(nil, at(p, 5)),
		Location:    parseLocation(at(p, 6)),
	}

	// details: [name, implementation, version, validator, networkId, ip, sysInfo, hwBench]
	if details, ok := asArray(at(p, 1)); ok {
		node.Name = asString(at(details, 0))
		node.Implementation = asString(at(details, 1))
		node.Version = asString(at(details, 2))
		node.Validator = domain.Ptr(!isNull(at(details, 3)))
		node.Network = &domain.NetworkInfo{
			PeerID: asString(at(details, 4)),
			IP:     asString(at(details, 5)),
		}
		node.SystemInfo = parseSystemInfo(at(details, 6))
	}
	applyStats(node, at(p, 2))

	t.mu.Lock()
	t.nodes[*id] = node
	t.mu.Unlock()
	return nil
}

func (t *Table) updateFromArray(msg Message, fn func(*domain.NodeRecord, []json.RawMessage)) error {
	p, ok := asArray(msg.Payload)
	if !ok {
		return fmt.Errorf("action %d: payload is not an array", msg.Action)
	}
	id := asInt(at(p, 0))
	if id == nil {
		return fmt.Errorf("action %d: bad id %s", msg.Action, at(p, 0))
	}
	return t.update(*id, func(n *domain.NodeRecord) { fn(n, p) })
}

// update replaces the node's record with a modified copy. Updates for
// unknown nodes are dropped; the feed may race AddedNode against them.
func (t *Table) update(id int64, fn func(*domain.NodeRecord)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.nodes[id]
	if !ok {
		t.log.Debug("update for unknown node", "node_id", id)
		return nil
	}

	next := *current
	fn(&next)
	next.LastUpdated = domain.Ptr(t.clock.Now().UnixMilli())
	t.nodes[id] = &next
	return nil
}

// applyStats handles [peers, txCount].
func applyStats(n *domain.NodeRecord, raw json.RawMessage) {
	stats, ok := asArray(raw)
	if !ok {
		return
	}

	network := domain.NetworkInfo{}
	if n.Network != nil {
		network = *n.Network
	}
	network.Peers = asInt(at(stats, 0))
	n.Network = &network
	n.TxCount = asInt(at(stats, 1))
}

// parseHardware handles [upload, download, timestamps].
func parseHardware(raw json.RawMessage) *domain.Hardware {
	hw, ok := asArray(raw)
	if !ok {
		return nil
	}
	return &domain.Hardware{
		Upload:   asSeries(at(hw, 0)),
		Download: asSeries(at(hw, 1)),
	}
}

// parseIO handles [stateCacheSizes].
func parseIO(raw json.RawMessage) *domain.IoStats {
	io, ok := asArray(raw)
	if !ok {
		return nil
	}
	return &domain.IoStats{StateCacheSize: asSeries(at(io, 0))}
}

// parseLocation handles [lat, lon, city].
func parseLocation(raw json.RawMessage) *domain.Location {
	loc, ok := asArray(raw)
	if !ok {
		return nil
	}
	return &domain.Location{
		Latitude:  asFloat(at(loc, 0)),
		Longitude: asFloat(at(loc, 1)),
		City:      asString(at(loc, 2)),
	}
}

// mergeBlock applies [height, hash, blockTime, blockTimestamp, propagationTime]
// on top of prev, keeping finality fields.
func mergeBlock(prev *domain.BlockInfo, raw json.RawMessage) *domain.BlockInfo {
	block, ok := asArray(raw)
	if !ok {
		return prev
	}
	b := cloneBlock(prev)
	b.Height = asInt(at(block, 0))
	b.Hash = asString(at(block, 1))
	b.PropagationTimeMs = asInt(at(block, 4))
	return b
}

func cloneBlock(b *domain.BlockInfo) *domain.BlockInfo {
	if b == nil {
		return &domain.BlockInfo{}
	}
	c := *b
	return &c
}

func parseSystemInfo(raw json.RawMessage) *domain.SystemInfo {
	obj, ok := asObject(raw)
	if !ok {
		return nil
	}

	first := func(keys ...string) json.RawMessage {
		for _, k := range keys {
			if v, ok := obj[k]; ok && !isNull(v) {
				return v
			}
		}
		return nil
	}

	return &domain.SystemInfo{
		OS:               asString(first("target_os", "os")),
		Architecture:     asString(first("target_arch", "arch", "architecture")),
		CPU:              asString(first("cpu")),
		CoreCount:        asInt(first("core_count")),
		MemoryBytes:      asInt(first("memory")),
		LinuxDistro:      asString(first("linux_distro")),
		LinuxKernel:      asString(first("linux_kernel")),
		IsVirtualMachine: asBool(first("is_virtual_machine")),
	}
}
