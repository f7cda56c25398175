package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/voice-lite/pkg/core"
	"github.com/vango-go/voice-lite/pkg/live"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTranscript(start time.Time) []live.TranscriptEntry {
	return []live.TranscriptEntry{
		{Role: live.RoleUser, Text: "what's the weather like", Timestamp: start},
		{Role: live.RoleModel, Text: "Looks sunny where you are.", Timestamp: start.Add(2 * time.Second)},
		{Role: live.RoleUser, Text: "thanks", Timestamp: start.Add(5 * time.Second)},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	entries := sampleTranscript(start)

	sess, err := s.Save(ctx, entries)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("session has no id")
	}
	if sess.Title != "what's the weather like" {
		t.Fatalf("title = %q, want first utterance", sess.Title)
	}
	if !sess.StartedAt.Equal(start) {
		t.Fatalf("started at = %v, want %v", sess.StartedAt, start)
	}

	loaded, err := s.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != len(entries) {
		t.Fatalf("loaded %d entries, want %d", len(loaded), len(entries))
	}
	for i, entry := range loaded {
		if entry.Role != entries[i].Role || entry.Text != entries[i].Text {
			t.Fatalf("entry %d = %+v, want %+v", i, entry, entries[i])
		}
		if !entry.Timestamp.Equal(entries[i].Timestamp) {
			t.Fatalf("entry %d timestamp = %v, want %v", i, entry.Timestamp, entries[i].Timestamp)
		}
	}
}

func TestSaveRejectsEmptyTranscript(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Save(context.Background(), nil); !errors.Is(err, core.ErrInvalidRequest) {
		t.Fatalf("Save(nil) = %v, want invalid request", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	first, err := s.Save(ctx, []live.TranscriptEntry{{Role: live.RoleUser, Text: "first", Timestamp: older}})
	if err != nil {
		t.Fatalf("Save first: %v", err)
	}
	second, err := s.Save(ctx, []live.TranscriptEntry{{Role: live.RoleUser, Text: "second", Timestamp: newer}})
	if err != nil {
		t.Fatalf("Save second: %v", err)
	}

	sessions, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("listed %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Fatalf("order = [%s %s], want newest first", sessions[0].Title, sessions[1].Title)
	}
}

func TestTitleTruncation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("a", 40)
	sess, err := s.Save(ctx, []live.TranscriptEntry{{Role: live.RoleUser, Text: long, Timestamp: time.Now()}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := len([]rune(sess.Title)); got != 30 {
		t.Fatalf("title length = %d runes, want 30", got)
	}

	blank, err := s.Save(ctx, []live.TranscriptEntry{{Role: live.RoleUser, Text: "   ", Timestamp: time.Now()}})
	if err != nil {
		t.Fatalf("Save blank: %v", err)
	}
	if blank.Title != "Live Session" {
		t.Fatalf("blank title = %q, want fallback", blank.Title)
	}
}

func TestLoadUnknownSession(t *testing.T) {
	s := openTestStore(t)
	entries, err := s.Load(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Load unknown id: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("loaded %d entries for unknown id, want 0", len(entries))
	}
}
