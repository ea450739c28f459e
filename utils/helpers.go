package utils

// IsValidInterval whitelists the ClickHouse toStartOf* bucket functions the
// stats queries may interpolate.
func IsValidInterval(interval string) bool {
	switch interval {
	case "Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year":
		return true
	default:
		return false
	}
}
