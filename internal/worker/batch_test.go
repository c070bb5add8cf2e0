package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/tagex/internal/pipeline"
)

// mockExtractor implements Extractor
type mockExtractor struct {
	failOn string
}

func (m *mockExtractor) ExtractRef(ctx context.Context, ref string) (*pipeline.Record, error) {
	time.Sleep(10 * time.Millisecond)
	if ref == m.failOn {
		return nil, errors.New("extract error")
	}
	return &pipeline.Record{ID: "id-" + ref, Source: ref}, nil
}

func TestBatchProcessor_ProcessRefs(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2, nil)

	refs := []string{"a.txt", "http://example.com", "c.html"}
	results := processor.ProcessRefs(context.Background(), refs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Ref != refs[i] {
			t.Errorf("result %d is for %s, want %s", i, res.Ref, refs[i])
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Ref, res.Error)
			continue
		}
		if res.Record == nil || res.Record.Source != refs[i] {
			t.Errorf("unexpected record for %s: %+v", res.Ref, res.Record)
		}
	}
}

func TestBatchProcessor_ProcessRefs_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{failOn: "bad"}, 2, nil)

	results := processor.ProcessRefs(context.Background(), []string{"good", "bad"})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("unexpected error: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[1].Record != nil {
		t.Error("expected nil record on error")
	}
}

func TestBatchProcessor_ProcessRefs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2, nil)

	results := processor.ProcessRefs(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessRefs_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessRefs(ctx, []string{"a", "b", "c"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Error != nil && !errors.Is(res.Error, context.Canceled) {
			t.Errorf("unexpected error for %s: %v", res.Ref, res.Error)
		}
	}
}

func TestReadSources(t *testing.T) {
	content := `docs/a.txt
# comment
https://example.com/booking

docs/a.txt
-   `

	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	refs, err := ReadSources(path)
	if err != nil {
		t.Fatalf("ReadSources failed: %v", err)
	}

	expected := []string{"docs/a.txt", "https://example.com/booking", "-"}
	if len(refs) != len(expected) {
		t.Fatalf("expected %d refs, got %d: %v", len(expected), len(refs), refs)
	}

	for i, ref := range refs {
		if ref != expected[i] {
			t.Errorf("expected ref %s at index %d, got %s", expected[i], i, ref)
		}
	}
}

func TestReadSources_NonExistent(t *testing.T) {
	_, err := ReadSources("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestExtractResult_GetError(t *testing.T) {
	r1 := &ExtractResult{Ref: "a.txt"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("extract failed")
	r2 := &ExtractResult{Ref: "a.txt", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
