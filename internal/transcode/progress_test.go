package transcode

import "testing"

func TestNormalizePercentClamp(t *testing.T) {
	const reference = 2_500_000

	cases := []struct {
		name string
		raw  int64
		want int
	}{
		{"zero", 0, 0},
		{"negative sample", -1_250_000, 50},
		{"positive sample", 1_250_000, 50},
		{"full", 2_500_000, 100},
		{"overshoot clamps high", 9_000_000, 100},
		{"negative overshoot clamps high", -9_000_000, 100},
		{"small sample", 25_000, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizePercent(tc.raw, reference)
			if got != tc.want {
				t.Fatalf("normalizePercent(%d) = %d, want %d", tc.raw, got, tc.want)
			}
			if got < 0 || got > 100 {
				t.Fatalf("clamp violated: %d", got)
			}
		})
	}
}

func TestNormalizePercentAlwaysInRange(t *testing.T) {
	const reference = 2_500_000
	samples := []int64{-1 << 40, -3_000_000, -1, 0, 1, 999, 2_499_999, 2_500_001, 1 << 40}
	for _, raw := range samples {
		got := normalizePercent(raw, reference)
		if got < 0 || got > 100 {
			t.Fatalf("normalizePercent(%d) = %d out of range", raw, got)
		}
	}
}

func TestNormalizePercentBadReference(t *testing.T) {
	if got := normalizePercent(1_000_000, 0); got != 0 {
		t.Fatalf("zero reference should yield 0, got %d", got)
	}
}
