package observability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is the metrics window used when none is given.
const DefaultWindow = 7 * 24 * time.Hour

// SinceWindow turns a real-time window such as "90m", "24h" or "7d" into the
// instant that far before now. An empty window means DefaultWindow.
func SinceWindow(window string, now time.Time) (time.Time, error) {
	window = strings.TrimSpace(window)
	if window == "" {
		return now.Add(-DefaultWindow), nil
	}

	var d time.Duration
	var err error
	if days, ok := strings.CutSuffix(window, "d"); ok {
		var n int
		n, err = strconv.Atoi(days)
		d = time.Duration(n) * 24 * time.Hour
	} else {
		d, err = time.ParseDuration(window)
	}
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid window %q (use e.g. 90m, 24h, 7d)", window)
	}
	return now.Add(-d), nil
}
