package query

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(_ context.Context, identifier string) string {
	return m[identifier]
}

func TestEnrichWithNames(t *testing.T) {
	r := mapResolver{
		"+11234567890":    "Alice Smith",
		"bob@example.com": "Bob Jones",
	}

	msgs := []Message{
		{GUID: "1", SenderID: "+11234567890"},
		{GUID: "2"}, // own message, no sender
		{GUID: "3", SenderID: "bob@example.com"},
		{GUID: "4", SenderID: "+19990001111"}, // not in directory
	}

	got := EnrichWithNames(context.Background(), r, msgs)

	names := make([]string, len(got))
	order := make([]string, len(got))
	for i, m := range got {
		names[i] = m.SenderName
		order[i] = m.GUID
	}

	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, order); diff != "" {
		t.Fatalf("output order changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Alice Smith", "", "Bob Jones", ""}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	// Input slice must not be mutated.
	if msgs[0].SenderName != "" {
		t.Fatal("input slice was mutated")
	}
}
