package anomaly

import (
	"time"
)

// DetectionRecord groups the anomalies found by one detection call
type DetectionRecord struct {
	ID         string    `json:"id" yaml:"id"`
	Method     string    `json:"method" yaml:"method"`
	Anomalies  []Anomaly `json:"anomalies" yaml:"anomalies"`
	Count      int       `json:"count" yaml:"count"`
	DetectedAt time.Time `json:"detected_at" yaml:"detected_at"`
}

// recordRing is a fixed-capacity FIFO of detection records. Pushing into a
// full ring evicts the oldest record. Not safe for concurrent use; the
// owning Detector serializes access.
type recordRing struct {
	data     []DetectionRecord
	head     int
	size     int
	capacity int
}

func newRecordRing(capacity int) *recordRing {
	return &recordRing{
		data:     make([]DetectionRecord, capacity),
		capacity: capacity,
	}
}

func (r *recordRing) push(rec DetectionRecord) {
	idx := (r.head + r.size) % r.capacity
	r.data[idx] = rec
	if r.size < r.capacity {
		r.size++
	} else {
		r.head = (r.head + 1) % r.capacity
	}
}

// last returns up to n most recent records, oldest first.
// n <= 0 returns everything.
func (r *recordRing) last(n int) []DetectionRecord {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]DetectionRecord, n)
	start := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.data[(r.head+start+i)%r.capacity]
	}
	return out
}

func (r *recordRing) len() int {
	return r.size
}

func (r *recordRing) reset() {
	r.data = make([]DetectionRecord, r.capacity)
	r.head = 0
	r.size = 0
}
