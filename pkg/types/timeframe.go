// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Timeframe selects the window of interest data a comparison covers.
type Timeframe string

const (
	Timeframe7D  Timeframe = "7d"
	Timeframe30D Timeframe = "30d"
	Timeframe12M Timeframe = "12m"
	Timeframe5Y  Timeframe = "5y"
	TimeframeAll Timeframe = "all"
)

// ParseTimeframe validates s and returns the matching Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case Timeframe7D, Timeframe30D, Timeframe12M, Timeframe5Y, TimeframeAll:
		return Timeframe(s), nil
	}
	return "", fmt.Errorf("unknown timeframe %q (want 7d, 30d, 12m, 5y, or all)", s)
}

// TTLScale returns the multiplier applied to a source's base TTLs for this
// timeframe. Longer windows change more slowly and tolerate longer caching:
// a 7-day window is cached for hours, a 5-year window for days.
func (t Timeframe) TTLScale() float64 {
	switch t {
	case Timeframe7D:
		return 1
	case Timeframe30D:
		return 2
	case Timeframe12M:
		return 4
	default: // 5y, all
		return 8
	}
}
