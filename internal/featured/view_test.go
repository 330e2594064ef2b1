package featured

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/moderation"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func item(id string, minute int, status moderation.Status) Item {
	return Item{CommentID: id, Status: status, Body: "body " + id, BodyHistoryLength: 1, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
}

func event(id string, minute int, status moderation.Status) comment.Event {
	return comment.Event{
		Kind:              comment.EventEdited,
		CommentID:         id,
		AssetID:           "asset",
		NewStatus:         status,
		NewBody:           "edited " + id,
		BodyHistoryLength: 2,
		CreatedAt:         base.Add(time.Duration(minute) * time.Minute),
	}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.CommentID
	}
	return out
}

func TestFeatured_Merge(t *testing.T) {
	list := []Item{
		item("c3", 3, moderation.StatusAccepted),
		item("c2", 2, moderation.StatusNone),
		item("c1", 1, moderation.StatusAccepted),
	}

	tests := []struct {
		name string
		ev   comment.Event
		want []string
	}{
		{"edit keeps visible entry", event("c2", 2, moderation.StatusNone), []string{"c3", "c2", "c1"}},
		{"rejection removes entry", event("c2", 2, moderation.StatusRejected), []string{"c3", "c1"}},
		{"premod removes entry", event("c3", 3, moderation.StatusPremod), []string{"c2", "c1"}},
		{"unfeatured comment is not added", event("c4", 4, moderation.StatusNone), []string{"c3", "c2", "c1"}},
		{"hidden unfeatured comment is ignored", event("c4", 4, moderation.StatusRejected), []string{"c3", "c2", "c1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]Item(nil), list...)
			got := Featured.Merge(list, tt.ev)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(before, list); diff != "" {
				t.Errorf("input list modified (-before +after):\n%s", diff)
			}
		})
	}
}

func TestFeatured_MergeUpdatesBody(t *testing.T) {
	list := []Item{item("c1", 1, moderation.StatusAccepted)}
	got := Featured.Merge(list, event("c1", 1, moderation.StatusAccepted))
	if got[0].Body != "edited c1" || got[0].BodyHistoryLength != 2 {
		t.Errorf("merged item = %+v", got[0])
	}
}

func TestPremodQueue_Merge(t *testing.T) {
	list := []Item{
		item("c1", 1, moderation.StatusPremod),
		item("c3", 3, moderation.StatusPremod),
	}

	tests := []struct {
		name string
		ev   comment.Event
		want []string
	}{
		{"new premod inserted in order", event("c2", 2, moderation.StatusPremod), []string{"c1", "c2", "c3"}},
		{"oldest goes first", event("c0", 0, moderation.StatusPremod), []string{"c0", "c1", "c3"}},
		{"accepted leaves queue", event("c1", 1, moderation.StatusAccepted), []string{"c3"}},
		{"clean edit leaves queue", event("c3", 3, moderation.StatusNone), []string{"c1"}},
		{"visible comment not added", event("c9", 9, moderation.StatusNone), []string{"c1", "c3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PremodQueue.Merge(list, tt.ev)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInsertSorted(t *testing.T) {
	var list []Item
	for _, m := range []int{5, 1, 3, 4, 2} {
		list = InsertSorted(list, item(fmt.Sprintf("c%d", m), m, moderation.StatusNone), ReverseChronological)
	}
	want := []string{"c5", "c4", "c3", "c2", "c1"}
	if diff := cmp.Diff(want, ids(list)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	// Re-inserting replaces rather than duplicates.
	list = InsertSorted(list, item("c3", 3, moderation.StatusAccepted), ReverseChronological)
	if len(list) != 5 || list[2].Status != moderation.StatusAccepted {
		t.Errorf("re-insert result = %+v", list)
	}
}

func TestComparators_TieBreakOnID(t *testing.T) {
	a := item("a", 1, moderation.StatusNone)
	b := item("b", 1, moderation.StatusNone)
	if !ReverseChronological(a, b) || ReverseChronological(b, a) {
		t.Error("ReverseChronological tie not broken by id")
	}
	if !Chronological(a, b) || Chronological(b, a) {
		t.Error("Chronological tie not broken by id")
	}
}

func TestRemove(t *testing.T) {
	list := []Item{item("a", 1, moderation.StatusNone), item("b", 2, moderation.StatusNone)}
	if got := ids(Remove(list, "a")); !cmp.Equal(got, []string{"b"}) {
		t.Errorf("Remove(a) = %v", got)
	}
	if got := ids(Remove(list, "zzz")); !cmp.Equal(got, []string{"a", "b"}) {
		t.Errorf("Remove(missing) = %v", got)
	}
}

func TestRemoveAuthors(t *testing.T) {
	list := []Item{item("a", 1, moderation.StatusNone), item("b", 2, moderation.StatusNone), item("c", 3, moderation.StatusNone)}
	list[0].AuthorID = "troll"
	list[1].AuthorID = "friend"
	list[2].AuthorID = "troll"

	tests := []struct {
		name    string
		authors []string
		want    []string
	}{
		{"one ignored author", []string{"troll"}, []string{"b"}},
		{"several ignored authors", []string{"troll", "friend"}, []string{}},
		{"unknown author", []string{"nobody"}, []string{"a", "b", "c"}},
		{"nobody ignored", nil, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(RemoveAuthors(list, tt.authors...))); diff != "" {
				t.Errorf("RemoveAuthors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestItemFromEvent_CarriesAuthor(t *testing.T) {
	ev := event("c1", 1, moderation.StatusNone)
	ev.AuthorID = "author-1"
	if got := ItemFromEvent(ev).AuthorID; got != "author-1" {
		t.Errorf("AuthorID = %q, want %q", got, "author-1")
	}
}

// newTestStore requires a Redis on localhost:6379 and skips otherwise.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	asset := fmt.Sprintf("test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		client.Del(ctx, Featured.Key(asset), PremodQueue.Key(asset))
		client.Close()
	})
	return NewStore(client), asset
}

func TestStore_FeatureAndPatch(t *testing.T) {
	s, asset := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := s.Add(ctx, Featured, asset, item(fmt.Sprintf("c%d", i), i, moderation.StatusAccepted)); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
	}

	ev := event("c2", 2, moderation.StatusRejected)
	ev.AssetID = asset
	if err := s.Apply(ctx, Featured, ev); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if err := s.Delete(ctx, Featured, asset, "c3"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	got, err := s.List(ctx, Featured, asset)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if diff := cmp.Diff([]string{"c1"}, ids(got)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_EmptyList(t *testing.T) {
	s, asset := newTestStore(t)
	got, err := s.List(context.Background(), PremodQueue, asset)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}
