// Package main provides an example hook that summarizes each decoded frame.
// Build it with: go build -o hooks/face-count/face-count ./hooks/face-count
package main

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event mirrors the payload the hook executor writes to stdin.
type Event struct {
	RunID       string `json:"run_id"`
	Source      string `json:"source"`
	FrameIndex  int    `json:"frame_index"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
	Detections  []struct {
		BBox       [4]int  `json:"bbox"`
		Confidence float32 `json:"confidence"`
	} `json:"detections"`
}

// Response is written to stdout.
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type summary struct {
	Faces         int     `json:"faces"`
	MaxConfidence float32 `json:"max_confidence"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode event: %v", err)})
		return
	}

	s := summary{Faces: len(ev.Detections)}
	for _, d := range ev.Detections {
		s.MaxConfidence = max(s.MaxConfidence, d.Confidence)
	}

	if path := os.Getenv("FACE_COUNT_LOG"); path != "" {
		line := fmt.Sprintf("%s\t%d\t%d\t%.3f\n", ev.Source, ev.FrameIndex, s.Faces, s.MaxConfidence)
		if err := appendLine(path, line); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("failed to write log: %v", err)})
			return
		}
	}

	writeResponse(Response{Success: true, Data: s})
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line)
	return err
}

func writeResponse(resp Response) {
	if err := json.NewEncoder(os.Stdout).Encode(resp); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode response: %v\n", err)
		os.Exit(1)
	}
}
