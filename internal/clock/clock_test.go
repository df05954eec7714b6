package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowSecondsIsMonotonicNonDecreasing(t *testing.T) {
	first := NowSeconds()
	require.NotZero(t, first)

	second := NowSeconds()
	require.GreaterOrEqual(t, second, first)
}

func TestNowMillisAdvances(t *testing.T) {
	first := NowMillis()
	time.Sleep(5 * time.Millisecond)
	second := NowMillis()
	require.Greater(t, second, first)
}
