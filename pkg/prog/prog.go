// Package prog renders transfer progress. Two consumers: the
// requester sees a live-edited status message with a bar and MB/s,
// the operator console gets go-pretty trackers for active transfers.
package prog

import (
	"fmt"
	"strings"
	"time"
)

const barSegments = 10

// Render formats one progress line: clamped percentage, a ten-segment
// block bar, and instantaneous MB/s derived from start. A zero total
// renders as 100% so size-less transfers still complete visually.
func Render(current, total int64, label string, start, now time.Time) string {
	percent := 100
	if total > 0 {
		percent = int(current * 100 / total)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent / barSegments
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barSegments-filled)

	speed := 0.0
	if elapsed := now.Sub(start).Seconds(); elapsed > 0 {
		speed = float64(current) / (1024 * 1024) / elapsed
	}

	return fmt.Sprintf("```\n%s: %3d%% [%s]\nSpeed : %6.2f MB/s\n```", label, percent, bar, speed)
}
