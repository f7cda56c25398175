package live

import (
	"testing"
	"time"
)

func TestAggregatorMergesSameRoleFragments(t *testing.T) {
	a := NewAggregator()
	a.Append("Hel", RoleModel)
	a.Append("lo the", RoleModel)
	a.Append("re", RoleModel)

	entries := a.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Text != "Hello there" {
		t.Fatalf("text = %q, want %q", entries[0].Text, "Hello there")
	}
	if entries[0].Role != RoleModel {
		t.Fatalf("role = %q, want model", entries[0].Role)
	}
}

func TestAggregatorSplitsOnRoleChange(t *testing.T) {
	a := NewAggregator()
	fragments := []struct {
		text string
		role Role
	}{
		{"hi", RoleUser},
		{" there", RoleUser},
		{"Hello", RoleModel},
		{"!", RoleModel},
		{"bye", RoleUser},
	}
	alternations := 0
	for i, f := range fragments {
		if i > 0 && fragments[i-1].role != f.role {
			alternations++
		}
		a.Append(f.text, f.role)
	}

	entries := a.Entries()
	if len(entries) != alternations+1 {
		t.Fatalf("entries = %d, want %d (alternation boundaries + 1)", len(entries), alternations+1)
	}
	if entries[0].Text != "hi there" || entries[1].Text != "Hello!" || entries[2].Text != "bye" {
		t.Fatalf("unexpected aggregation: %#v", entries)
	}
}

func TestAggregatorTimestampsNonDecreasing(t *testing.T) {
	a := NewAggregator()
	now := time.Unix(100, 0)
	a.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	a.Append("a", RoleUser)
	a.Append("b", RoleModel)
	a.Append("c", RoleModel)
	a.Append("d", RoleUser)

	entries := a.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Fatalf("timestamp %d precedes timestamp %d", i, i-1)
		}
	}
	// Concatenation keeps the entry's original timestamp.
	if !entries[1].Timestamp.Equal(time.Unix(102, 0)) {
		t.Fatalf("merged entry timestamp = %v, want first fragment's", entries[1].Timestamp)
	}
}

func TestAggregatorEntriesReturnsCopy(t *testing.T) {
	a := NewAggregator()
	a.Append("x", RoleUser)
	entries := a.Entries()
	entries[0].Text = "mutated"
	if got := a.Entries()[0].Text; got != "x" {
		t.Fatalf("internal entry mutated through returned slice: %q", got)
	}
}
