package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"modelprof-mcp/internal/optable"
)

// Hotspot represents an operation that consumes a significant share of the
// model's estimated cost.
type Hotspot struct {
	OpNumber        int
	OperatorID      string
	OperatorName    string
	PreferredDevice string
	Cost            float64
	OpTime          float64 // ms, zero unless the table carries a timeline
	Percentage      float64 // share of total cost across the table
}

// FindHotspots returns the topN operations by cost weight, descending.
func FindHotspots(table *optable.Table, topN int) []Hotspot {
	rows := table.Rows()

	totalCost := 0.0
	for _, row := range rows {
		totalCost += row.Cost
	}

	hotspots := make([]Hotspot, 0, len(rows))
	for _, row := range rows {
		hs := Hotspot{
			OpNumber:        row.OpNumber,
			OperatorID:      row.OperatorID,
			OperatorName:    row.OperatorName,
			PreferredDevice: row.PreferredDevice,
			Cost:            row.Cost,
			OpTime:          row.OpTime,
		}
		if totalCost > 0 {
			hs.Percentage = (row.Cost / totalCost) * 100.0
		}
		hotspots = append(hotspots, hs)
	}

	// Sort by cost (descending)
	sort.Slice(hotspots, func(i, j int) bool {
		return hotspots[i].Cost > hotspots[j].Cost
	})

	if topN > 0 && topN < len(hotspots) {
		return hotspots[:topN]
	}
	return hotspots
}

// OperatorShare aggregates cost by operator kind.
type OperatorShare struct {
	OperatorName string
	Count        int
	TotalCost    float64
	Percentage   float64
}

// OperatorShares groups cost by operator kind, sorted by total cost
// descending.
func OperatorShares(table *optable.Table) []OperatorShare {
	byName := make(map[string]*OperatorShare)
	totalCost := 0.0

	for _, row := range table.Rows() {
		totalCost += row.Cost
		if _, exists := byName[row.OperatorName]; !exists {
			byName[row.OperatorName] = &OperatorShare{OperatorName: row.OperatorName}
		}
		share := byName[row.OperatorName]
		share.Count++
		share.TotalCost += row.Cost
	}

	shares := make([]OperatorShare, 0, len(byName))
	for _, share := range byName {
		if totalCost > 0 {
			share.Percentage = (share.TotalCost / totalCost) * 100.0
		}
		shares = append(shares, *share)
	}

	sort.Slice(shares, func(i, j int) bool {
		return shares[i].TotalCost > shares[j].TotalCost
	})

	return shares
}

// DeviceShares groups cost by preferred device.
func DeviceShares(table *optable.Table) map[string]float64 {
	shares := make(map[string]float64)
	for _, row := range table.Rows() {
		device := row.PreferredDevice
		if device == "" {
			device = "[unknown]"
		}
		shares[device] += row.Cost
	}
	return shares
}

// FormatHotspot returns a human-readable string representation of a hotspot.
func FormatHotspot(hs Hotspot, rank int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("#%d: op %d %s (%s)\n", rank, hs.OpNumber, hs.OperatorName, hs.OperatorID))
	sb.WriteString(fmt.Sprintf("    Cost: %.4f (%.2f%%)\n", hs.Cost, hs.Percentage))
	if hs.OpTime > 0 {
		sb.WriteString(fmt.Sprintf("    Time: %.4f ms\n", hs.OpTime))
	}
	if hs.PreferredDevice != "" {
		sb.WriteString(fmt.Sprintf("    Device: %s\n", hs.PreferredDevice))
	}

	return sb.String()
}
