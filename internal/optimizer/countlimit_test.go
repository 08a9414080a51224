package optimizer

import (
	"context"
	"testing"
)

func TestMergeToLimit(t *testing.T) {
	params := DefaultParams()
	oracle := &fakeOracle{}
	constructor := &fakeConstructor{}

	t.Run("under target passes through untouched", func(t *testing.T) {
		chunks := []taggedChunk{
			{chunk: newTestChunk("a", "ctx", entries("m1"))},
			{chunk: newTestChunk("b", "ctx", entries("m2"))},
		}
		out, err := mergeToLimit(context.Background(), oracle, constructor, params, chunks, 5)
		if err != nil {
			t.Fatalf("mergeToLimit: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 chunks unchanged, got %d", len(out))
		}
	})

	t.Run("reduces to at most target count", func(t *testing.T) {
		var chunks []taggedChunk
		for i := 0; i < 30; i++ {
			chunks = append(chunks, taggedChunk{chunk: newTestChunk(
				"c", "ctx", entries(string(rune('a'+i%26))),
			)})
		}
		out, err := mergeToLimit(context.Background(), oracle, constructor, params, chunks, 10)
		if err != nil {
			t.Fatalf("mergeToLimit: %v", err)
		}
		if len(out) > 10 {
			t.Fatalf("expected at most 10 chunks, got %d", len(out))
		}
	})

	t.Run("groups by provenance before cross-group merging", func(t *testing.T) {
		tagA := newProvenance()
		tagB := newProvenance()
		chunks := []taggedChunk{
			{chunk: newTestChunk("a1", "ctx", entries("a1")), provenance: tagA},
			{chunk: newTestChunk("a2", "ctx", entries("a2")), provenance: tagA},
			{chunk: newTestChunk("a3", "ctx", entries("a3")), provenance: tagA},
			{chunk: newTestChunk("b1", "ctx", entries("b1")), provenance: tagB},
		}
		out, err := mergeToLimit(context.Background(), oracle, constructor, params, chunks, 2)
		if err != nil {
			t.Fatalf("mergeToLimit: %v", err)
		}
		if len(out) > 2 {
			t.Fatalf("expected at most 2 chunks, got %d", len(out))
		}
		gotEntries := allMainEntries(out)
		for _, e := range entries("a1", "a2", "a3", "b1") {
			if _, ok := gotEntries[e]; !ok {
				t.Fatalf("lost entry %q", e)
			}
		}
	})
}
