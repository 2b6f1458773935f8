// Package hook runs external commands after a frame has been decoded.
package hook

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/ayusman/facedecode/internal/detector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manifest describes a hook. It is read from hook.json in the hook directory.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`

	// MinFaces skips the hook for frames with fewer detections.
	MinFaces int `json:"min_faces"`
}

// Event is sent to a hook on stdin.
type Event struct {
	RunID       string               `json:"run_id,omitempty"`
	Source      string               `json:"source"`
	FrameIndex  int                  `json:"frame_index"`
	ImageWidth  int                  `json:"image_width"`
	ImageHeight int                  `json:"image_height"`
	Detections  []detector.Detection `json:"detections"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Accepts reports whether the hook wants an event with n detections.
func (h *Hook) Accepts(n int) bool {
	return n >= h.Manifest.MinFaces
}
