package reading

import (
	"encoding/json"
	"testing"
	"time"
)

// TestSupersededBy covers the out-of-order guard on cache writes: a
// stale-timestamped reading must not displace a newer cached one.
func TestSupersededBy(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	encode := func(t *testing.T, r *SensorReading) []byte {
		t.Helper()
		payload, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal reading: %v", err)
		}
		return payload
	}

	cached := encode(t, &SensorReading{SensorID: StreamDHT22, Timestamp: base})

	tests := []struct {
		name      string
		candidate time.Time
		want      bool
	}{
		{name: "older candidate loses", candidate: base.Add(-time.Minute), want: true},
		{name: "newer candidate wins", candidate: base.Add(time.Minute), want: false},
		{name: "equal timestamp wins", candidate: base, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := supersededBy(cached, tt.candidate); got != tt.want {
				t.Errorf("supersededBy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupersededBy_UnparseableEntry(t *testing.T) {
	// Garbage in the cache must get overwritten, never pinned.
	if supersededBy([]byte("{not json"), time.Now()) {
		t.Error("supersededBy() = true for unparseable cached entry")
	}
}
