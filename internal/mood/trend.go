package mood

type Trend string

const (
	Improving        Trend = "improving"
	Declining        Trend = "declining"
	Stable           Trend = "stable"
	InsufficientData Trend = "insufficient_data"
)

const (
	// RecentWindow is how many trailing daily points form the recent average;
	// the same number of points before them form the earlier average.
	RecentWindow = 3
	// HysteresisBand is the margin the recent average must clear before the
	// trend leaves Stable.
	HysteresisBand = 0.5
	minTrendPoints = 2
)

// EvaluateTrend compares the last RecentWindow points with the points right
// before them.
func EvaluateTrend(points []float64) Trend {
	n := len(points)
	if n < minTrendPoints {
		return InsufficientData
	}
	recentStart := max(0, n-RecentWindow)
	earlierStart := max(0, n-2*RecentWindow)
	recent := points[recentStart:]
	earlier := points[earlierStart:recentStart]
	if len(recent) == 0 || len(earlier) == 0 {
		return InsufficientData
	}

	recentAvg, earlierAvg := mean(recent), mean(earlier)
	switch {
	case recentAvg > earlierAvg+HysteresisBand:
		return Improving
	case recentAvg < earlierAvg-HysteresisBand:
		return Declining
	default:
		return Stable
	}
}

// TrendIcon renders a trend for the tracker header. Insufficient data reads
// "Building" until there are two points and "Tracking" after that.
func TrendIcon(t Trend, points int) string {
	switch t {
	case Improving:
		return "📈 Improving"
	case Declining:
		return "📉 Declining"
	case Stable:
		return "➡️ Stable"
	}
	if points < minTrendPoints {
		return "📊 Building"
	}
	return "📊 Tracking"
}
