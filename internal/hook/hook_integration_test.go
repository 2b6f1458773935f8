package hook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHook_FaceCount_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	root := filepath.Join("..", "..", "hooks")
	if _, err := os.Stat(filepath.Join(root, "face-count", "face-count")); err != nil {
		t.Skip("face-count hook not built")
	}

	mgr := NewManager(root)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	h, err := mgr.Get("face-count")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, testEvent())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}

	var data struct {
		Faces         int     `json:"faces"`
		MaxConfidence float32 `json:"max_confidence"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to parse data: %v", err)
	}
	if data.Faces != 1 || data.MaxConfidence < 0.89 {
		t.Errorf("unexpected data %+v", data)
	}
}
