package live

import (
	"sync"
	"time"
)

// TranscriptEntry is one aggregated utterance of the session transcript.
type TranscriptEntry struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// Aggregator merges consecutive same-speaker transcript fragments into
// growing utterances. A fragment whose role matches the last entry is
// concatenated onto it (timestamp retained); a role change appends a new
// entry. The sequence is append-only and timestamps are non-decreasing.
type Aggregator struct {
	mu      sync.Mutex
	entries []TranscriptEntry
	now     func() time.Time
}

// NewAggregator creates an empty transcript.
func NewAggregator() *Aggregator {
	return &Aggregator{now: time.Now}
}

// Append merges one fragment into the transcript.
func (a *Aggregator) Append(text string, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.entries); n > 0 && a.entries[n-1].Role == role {
		a.entries[n-1].Text += text
		return
	}
	a.entries = append(a.entries, TranscriptEntry{Role: role, Text: text, Timestamp: a.now()})
}

// Entries returns a copy of the accumulated transcript.
func (a *Aggregator) Entries() []TranscriptEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]TranscriptEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len reports the number of aggregated utterances.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
