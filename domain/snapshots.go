package domain

// SnapshotLog is the bounded idempotency log of a session, ordered by
// ProcessedAt ascending. Because every Submit records with a later timestamp
// than the previous one, insertion order and ProcessedAt order coincide, so
// eviction of the oldest entry is a single slice trim.
type SnapshotLog []ProcessedRequestSnapshot

// Find returns the snapshot recorded under requestID, or nil.
func (l SnapshotLog) Find(requestID string) *ProcessedRequestSnapshot {
	for i := range l {
		if l[i].RequestID == requestID {
			return &l[i]
		}
	}
	return nil
}

// Record appends a snapshot and evicts the oldest entries until the log holds
// at most limit entries.
func (l SnapshotLog) Record(snap ProcessedRequestSnapshot, limit int) SnapshotLog {
	l = append(l, snap)
	if over := len(l) - limit; over > 0 {
		l = append(SnapshotLog(nil), l[over:]...)
	}
	return l
}
