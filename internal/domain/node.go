// Package domain
package domain

// NodeRecord is one node as reported by the telemetry feed during a single
// collection cycle. Nil pointers mean the feed did not supply the value.
type NodeRecord struct {
	ID             *int64
	Name           *string
	Implementation *string
	Version        *string
	Validator      *bool
	Stale          *bool

	// StartupTime is kept as received; it is usually unix millis but the
	// feed does not guarantee a numeric value.
	StartupTime *string
	LastUpdated *int64
	TxCount     *int64

	SystemInfo *SystemInfo
	Hardware   *Hardware
	IO         *IoStats
	Block      *BlockInfo
	Network    *NetworkInfo
	Location   *Location
}

type SystemInfo struct {
	OS               *string
	Architecture     *string
	CPU              *string
	CoreCount        *int64
	MemoryBytes      *int64
	LinuxDistro      *string
	LinuxKernel      *string
	IsVirtualMachine *bool
}

// Hardware holds chronological bandwidth samples.
type Hardware struct {
	Upload   []float64
	Download []float64
}

type IoStats struct {
	StateCacheSize []float64
}

type BlockInfo struct {
	Height            *int64
	Hash              *string
	FinalizedHeight   *int64
	FinalizedHash     *string
	PropagationTimeMs *int64
}

type NetworkInfo struct {
	Peers  *int64
	PeerID *string
	IP     *string
}

type Location struct {
	Latitude  *float64
	Longitude *float64
	City      *string
}

func Ptr[T any](v T) *T {
	return &v
}
