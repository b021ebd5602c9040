package flatten

import (
	"time"

	"telemetry-collector/internal/domain"
)

// CollectedAtLayout is ISO-8601 with an explicit numeric offset.
const CollectedAtLayout = "2006-01-02T15:04:05-07:00"

var (
	nodeColumns = []string{
		"collected_at", "node_id", "name", "validator", "implementation",
		"version", "stale", "startup_time", "last_updated", "tx_count",
	}
	uptimeColumns = []string{"uptime_seconds", "uptime_hours"}
	blockColumns  = []string{
		"block_height", "block_hash", "finalized_height", "finalized_hash", "propagation_time_ms",
	}
	networkColumns  = []string{"peers", "peer_id", "ip"}
	locationColumns = []string{"latitude", "longitude", "city"}
	systemColumns   = []string{
		"os", "architecture", "cpu", "core_count", "memory_bytes", "memory_gb",
		"linux_distro", "linux_kernel", "is_virtual_machine",
	}
	hardwareColumns = []string{
		"upload_bw_last", "upload_bw_avg", "upload_bw_max",
		"download_bw_last", "download_bw_avg", "download_bw_max",
	}
	ioColumns = []string{"state_cache_last", "state_cache_avg", "state_cache_max"}
)

// columnGroups is the row layout, in output order.
var columnGroups = [][]string{
	nodeColumns,
	uptimeColumns,
	blockColumns,
	networkColumns,
	locationColumns,
	systemColumns,
	hardwareColumns,
	ioColumns,
}

// Columns returns the fixed FlatRow schema in column order.
func Columns() []string {
	var cols []string
	for _, group := range columnGroups {
		cols = append(cols, group...)
	}
	return cols
}

// NodeToRow flattens one node. now is the cycle's collection instant and
// is shared by every row of the cycle.
func NodeToRow(node domain.NodeRecord, now time.Time) domain.FlatRow {
	uptime := ComputeUptime(node.StartupTime, now)

	row := make(domain.FlatRow, 0, len(Columns()))

	row = append(row, zip(nodeColumns,
		now.Format(CollectedAtLayout),
		integer(node.ID),
		str(node.Name),
		boolean(node.Validator),
		str(node.Implementation),
		str(node.Version),
		boolean(node.Stale),
		str(node.StartupTime),
		integer(node.LastUpdated),
		integer(node.TxCount),
	)...)
	row = append(row, zip(uptimeColumns, number(uptime), number(UptimeHours(uptime)))...)
	row = append(row, BlockFields(node.Block)...)
	row = append(row, NetworkFields(node.Network)...)
	row = append(row, LocationFields(node.Location)...)
	row = append(row, SystemFields(node.SystemInfo)...)
	row = append(row, HardwareFields(node.Hardware)...)
	row = append(row, IoFields(node.IO)...)

	return row
}

// NodesToRows flattens a batch with one shared instant.
func NodesToRows(nodes []domain.NodeRecord, now time.Time) []domain.FlatRow {
	rows := make([]domain.FlatRow, len(nodes))
	for i, node := range nodes {
		rows[i] = NodeToRow(node, now)
	}
	return rows
}
