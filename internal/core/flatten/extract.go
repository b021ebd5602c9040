package flatten

import "telemetry-collector/internal/domain"

const bytesPerGiB = 1 << 30

func SystemFields(info *domain.SystemInfo) []domain.Field {
	if info == nil {
		return nullFields(systemColumns)
	}

	var memoryGB any
	if info.MemoryBytes != nil {
		memoryGB = float64(*info.MemoryBytes) / bytesPerGiB
	}

	return zip(systemColumns,
		str(info.OS),
		str(info.Architecture),
		str(info.CPU),
		integer(info.CoreCount),
		integer(info.MemoryBytes),
		memoryGB,
		str(info.LinuxDistro),
		str(info.LinuxKernel),
		boolean(info.IsVirtualMachine),
	)
}

func HardwareFields(hw *domain.Hardware) []domain.Field {
	if hw == nil {
		return nullFields(hardwareColumns)
	}

	up := Aggregate(hw.Upload)
	down := Aggregate(hw.Download)

	return zip(hardwareColumns,
		number(up.Last), number(up.Avg), number(up.Max),
		number(down.Last), number(down.Avg), number(down.Max),
	)
}

func IoFields(io *domain.IoStats) []domain.Field {
	if io == nil {
		return nullFields(ioColumns)
	}

	cache := Aggregate(io.StateCacheSize)
	return zip(ioColumns, number(cache.Last), number(cache.Avg), number(cache.Max))
}

func BlockFields(b *domain.BlockInfo) []domain.Field {
	if b == nil {
		return nullFields(blockColumns)
	}

	return zip(blockColumns,
		integer(b.Height),
		str(b.Hash),
		integer(b.FinalizedHeight),
		str(b.FinalizedHash),
		integer(b.PropagationTimeMs),
	)
}

func NetworkFields(n *domain.NetworkInfo) []domain.Field {
	if n == nil {
		return nullFields(networkColumns)
	}

	return zip(networkColumns, integer(n.Peers), str(n.PeerID), str(n.IP))
}

func LocationFields(l *domain.Location) []domain.Field {
	if l == nil {
		return nullFields(locationColumns)
	}

	return zip(locationColumns, number(l.Latitude), number(l.Longitude), str(l.City))
}

// The helpers below unwrap optional values into untyped nil so that a
// missing value never shows up as a typed nil pointer inside a Field.

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func integer(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func number(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolean(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFields(names []string) []domain.Field {
	fields := make([]domain.Field, len(names))
	for i, name := range names {
		fields[i] = domain.Field{Name: name}
	}
	return fields
}

// zip pairs names with values positionally. A length mismatch is a
// programming error in this package.
func zip(names []string, values ...any) []domain.Field {
	if len(names) != len(values) {
		panic("flatten: column/value count mismatch")
	}

	fields := make([]domain.Field, len(names))
	for i, name := range names {
		fields[i] = domain.Field{Name: name, Value: values[i]}
	}
	return fields
}
