package hook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/facedecode/internal/detector"
)

// writeScriptHook creates a shell script hook in a temporary directory.
func writeScriptHook(t *testing.T, script string) *Hook {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "hook.sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Hook{
		Manifest:   Manifest{Name: "test-hook", Executable: "hook.sh"},
		Path:       dir,
		Executable: path,
	}
}

func testEvent() *Event {
	return &Event{
		Source:      "frames.ndjson",
		FrameIndex:  2,
		ImageWidth:  64,
		ImageHeight: 64,
		Detections: []detector.Detection{
			{BBox: detector.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Confidence: 0.9},
		},
	}
}

func TestExecutor_Execute(t *testing.T) {
	h := writeScriptHook(t, `#!/bin/sh
cat <<'EOF'
{"success":true,"data":{"message":"hello"}}
EOF
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, testEvent())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success=true, got false")
	}
	if !strings.Contains(string(resp.Data), "hello") {
		t.Errorf("expected data to contain hello, got %s", resp.Data)
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	// Echo the event back inside the data field.
	h := writeScriptHook(t, `#!/bin/sh
printf '{"success":true,"data":'
cat
printf '}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, testEvent())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var got Event
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to unmarshal echoed event: %v", err)
	}
	if got.FrameIndex != 2 || got.Source != "frames.ndjson" {
		t.Errorf("unexpected echoed event %+v", got)
	}
	if len(got.Detections) != 1 || got.Detections[0].BBox.X2 != 10 {
		t.Errorf("unexpected echoed detections %+v", got.Detections)
	}
	if !strings.Contains(string(resp.Data), `"bbox":[0,0,10,10]`) {
		t.Errorf("expected array bbox encoding, got %s", resp.Data)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	h := writeScriptHook(t, `#!/bin/sh
sleep 10
echo '{"success":true}'
`)

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), h, testEvent())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	h := writeScriptHook(t, `#!/bin/sh
echo '{"success":false,"error":"disk full"}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, testEvent())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.Success || resp.Error != "disk full" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	h := writeScriptHook(t, `#!/bin/sh
echo 'not json'
`)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, testEvent())
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	h := writeScriptHook(t, `#!/bin/sh
echo 'boom' >&2
exit 3
`)

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, testEvent())
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}
