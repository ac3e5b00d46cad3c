package probemap

import (
	"fmt"
	"strings"
)

// Stats returns statistics for the LinearMapOf. Just like other map
// methods, this one is thread-safe. Yet it's an O(N) operation,
// so it should be used only for diagnostics or debugging purposes.
func (m *LinearMapOf[K, V]) Stats() *LinearMapStats {
	stats := &LinearMapStats{
		TotalGrowths: m.totalGrowths.Load(),
	}
	table := m.table.Load()
	if table == nil {
		return stats
	}
	stats.Capacity = table.capacity()
	stats.SlotGroups = len(table.groups)
	stats.Counter = table.sumSize()
	stats.CounterLen = len(table.size)
	stats.Used = int(table.used.Load())
	stats.GrowThreshold = int(table.growThreshold)

	totalProbe := 0
	for i := range table.slots {
		e := table.slots[i].Load()
		switch {
		case e == nil:
			stats.EmptySlots++
		case e.state == slotTombstone:
			stats.Tombstones++
		default:
			stats.Size++
			// distance from the home slot, wrapping past the end
			probe := int((uintptr(i) - e.hash&table.mask) & table.mask)
			totalProbe += probe
			stats.MaxProbeLength = max(stats.MaxProbeLength, probe)
		}
	}
	if stats.Size != 0 {
		stats.AvgProbeLength = float64(totalProbe) / float64(stats.Size)
	}
	return stats
}

// LinearMapStats is LinearMapOf statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type LinearMapStats struct {
	// Capacity is the number of slots of the current table.
	Capacity int
	// SlotGroups is the number of slot group locks.
	SlotGroups int
	// Size is the exact number of occupied slots.
	Size int
	// Tombstones is the number of slots holding a removal marker.
	Tombstones int
	// EmptySlots is the number of slots never written since the last
	// resize.
	EmptySlots int
	// Used is the load factor budget in use, occupied plus tombstoned
	// slots, according to the internal counter.
	Used int
	// GrowThreshold is the budget at which the table grows.
	GrowThreshold int
	// Counter is the number of entries stored in the map according
	// to the internal atomic counter. In case of concurrent map
	// modifications this number may be different from Size.
	Counter int
	// CounterLen is the number of internal atomic counter stripes.
	CounterLen int
	// MaxProbeLength is the longest distance between an entry's home
	// slot and the slot holding it.
	MaxProbeLength int
	// AvgProbeLength is the mean of that distance over all entries.
	AvgProbeLength float64
	// TotalGrowths is the number of times the hash table grew.
	TotalGrowths uint32
}

// ToString returns string representation of map stats.
func (s *LinearMapStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("LinearMapStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:       %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("SlotGroups:     %d\n", s.SlotGroups))
	sb.WriteString(fmt.Sprintf("Size:           %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Tombstones:     %d\n", s.Tombstones))
	sb.WriteString(fmt.Sprintf("EmptySlots:     %d\n", s.EmptySlots))
	sb.WriteString(fmt.Sprintf("Used:           %d\n", s.Used))
	sb.WriteString(fmt.Sprintf("GrowThreshold:  %d\n", s.GrowThreshold))
	sb.WriteString(fmt.Sprintf("Counter:        %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("CounterLen:     %d\n", s.CounterLen))
	sb.WriteString(fmt.Sprintf("MaxProbeLength: %d\n", s.MaxProbeLength))
	sb.WriteString(fmt.Sprintf("AvgProbeLength: %.2f\n", s.AvgProbeLength))
	sb.WriteString(fmt.Sprintf("TotalGrowths:   %d\n", s.TotalGrowths))
	sb.WriteString("}\n")
	return sb.String()
}
