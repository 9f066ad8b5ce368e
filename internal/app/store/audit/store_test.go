package audit

import (
	"testing"
	"time"

	"github.com/vicarhk/vicarapi/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	err := store.Log(ctx, Event{
		Category:  CategoryAuth,
		EventType: EventLoginSuccess,
		Username:  "dispatch",
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestAgent",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	events, err := store.Query(ctx, QueryFilter{Username: "dispatch"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Query() returned %d events, want 1", len(events))
	}
	got := events[0]
	if got.ID.IsZero() || got.CreatedAt.IsZero() {
		t.Error("Log() should fill ID and CreatedAt")
	}
	if got.UserID == nil || *got.UserID != userID || !got.Success {
		t.Errorf("event = %+v", got)
	}
}

func TestStore_Query(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	seed := []Event{
		{Category: CategoryAuth, EventType: EventLoginFailed, Username: "a", CreatedAt: base},
		{Category: CategoryAuth, EventType: EventLoginSuccess, Username: "a", Success: true, CreatedAt: base.Add(time.Minute)},
		{Category: CategoryAdmin, EventType: EventUserCreated, Username: "b", Success: true, CreatedAt: base.Add(2 * time.Minute)},
		{Category: CategoryAuth, EventType: EventLoginFailed, Username: "b", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    QueryFilter
		wantCount int
		wantFirst string
	}{
		{"all newest first", QueryFilter{}, 4, "b"},
		{"by category", QueryFilter{Category: CategoryAdmin}, 1, "b"},
		{"by event type", QueryFilter{EventType: EventLoginFailed}, 2, "b"},
		{"by username", QueryFilter{Username: "a"}, 2, "a"},
		{"since", QueryFilter{Since: base.Add(90 * time.Second)}, 2, "b"},
		{"limit", QueryFilter{Limit: 1}, 1, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(events) != tt.wantCount {
				t.Fatalf("Query() returned %d events, want %d", len(events), tt.wantCount)
			}
			if events[0].Username != tt.wantFirst {
				t.Errorf("first event username = %q, want %q", events[0].Username, tt.wantFirst)
			}
		})
	}
}

func TestStore_Query_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	events, err := New(db).Query(ctx, QueryFilter{Category: CategoryAuth})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("Query() = %#v, want empty non-nil slice", events)
	}
}

func TestStore_PurgeStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	store.Log(ctx, Event{Category: CategoryAuth, EventType: EventLoginFailed, CreatedAt: now.Add(-100 * 24 * time.Hour)})
	store.Log(ctx, Event{Category: CategoryAuth, EventType: EventLoginFailed, CreatedAt: now})

	n, err := store.PurgeStale(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeStale() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeStale() removed %d, want 1", n)
	}
	if events, _ := store.Query(ctx, QueryFilter{}); len(events) != 1 {
		t.Errorf("remaining events = %d, want 1", len(events))
	}
}
