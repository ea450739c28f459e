package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidInterval(t *testing.T) {
	for _, interval := range []string{"Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year"} {
		assert.True(t, IsValidInterval(interval), interval)
	}
	for _, interval := range []string{"", "day", "Fortnight", "Second", "DAY"} {
		assert.False(t, IsValidInterval(interval), interval)
	}
}
