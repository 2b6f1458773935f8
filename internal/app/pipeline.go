package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ayusman/facedecode/internal/detector"
	"github.com/ayusman/facedecode/internal/hook"
	"github.com/ayusman/facedecode/internal/logging"
	"github.com/ayusman/facedecode/internal/store"
)

// pending is a frame read from the source and waiting to be decoded.
type pending struct {
	index int
	frame *detector.Frame
}

// Run drains the source until io.EOF.
//
// Frames rejected with detector.ErrShapeMismatch or detector.ErrInvalidConfig,
// by the source or the detector, are logged and skipped. Any other source,
// detector or store error ends the run and is returned with the stats so far.
// Hook failures are logged and counted only.
func (a *App) Run(ctx context.Context) (stats Stats, err error) {
	start := time.Now()
	defer func() {
		stats.Elapsed = time.Since(start)
	}()

	batchSize := max(a.config.BatchSize, 1)
	batch := make([]pending, 0, batchSize)
	index := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := a.processBatch(ctx, batch, &stats)
		batch = batch[:0]
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		frame, nextErr := a.config.Source.Next(ctx)
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			if isFrameError(nextErr) {
				a.skip(index, nextErr, &stats)
				index++
				continue
			}
			return stats, fmt.Errorf("read frame %d: %w", index, nextErr)
		}

		batch = append(batch, pending{index: index, frame: frame})
		index++

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	a.log.WithFields(logging.Fields{
		"source":  a.config.SourceName,
		"frames":  stats.Frames,
		"faces":   stats.Faces,
		"skipped": stats.Skipped,
	}).Info("run complete")

	return stats, nil
}

func (a *App) processBatch(ctx context.Context, batch []pending, stats *Stats) error {
	det := a.Detector()
	params := a.config.Params

	if bd, ok := det.(BatchDetector); ok && len(batch) > 1 {
		frames := make([]*detector.Frame, len(batch))
		for i, p := range batch {
			frames[i] = p.frame
		}

		start := time.Now()
		results, err := bd.DetectBatch(ctx, frames, params)
		if err == nil {
			// Per-frame latency is not observable inside a batch.
			latency := time.Since(start) / time.Duration(len(batch))
			for i, p := range batch {
				if err := a.handle(ctx, p, results[i], latency, stats); err != nil {
					return err
				}
			}
			return nil
		}
		if !isFrameError(err) {
			return err
		}
		// Retry frame by frame to isolate the bad frame.
	}

	for _, p := range batch {
		start := time.Now()
		dets, err := det.Detect(p.frame, params)
		if err != nil {
			if isFrameError(err) {
				a.skip(p.index, err, stats)
				continue
			}
			return fmt.Errorf("detect frame %d: %w", p.index, err)
		}
		if err := a.handle(ctx, p, dets, time.Since(start), stats); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) handle(ctx context.Context, p pending, dets []detector.Detection, latency time.Duration, stats *Stats) error {
	res := Result{
		Index:      p.index,
		Frame:      p.frame,
		Detections: dets,
		Latency:    latency,
	}

	if a.config.Store != nil {
		runID, err := a.persist(p, dets)
		if err != nil {
			return fmt.Errorf("persist frame %d: %w", p.index, err)
		}
		res.RunID = runID
	}

	stats.Frames++
	stats.Faces += len(dets)

	a.log.WithFields(logging.Fields{
		"frame":      p.index,
		"faces":      len(dets),
		"latency_ms": float64(latency.Microseconds()) / 1000,
		"run_id":     res.RunID,
	}).Debug("frame decoded")

	a.runHooks(ctx, res, stats)

	a.mu.RLock()
	callbacks := a.callbacks
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn(res)
	}

	return nil
}

func (a *App) persist(p pending, dets []detector.Detection) (string, error) {
	params := a.config.Params
	run := &store.Run{
		Source:              a.config.SourceName,
		FrameIndex:          p.index,
		ImageWidth:          p.frame.Width,
		ImageHeight:         p.frame.Height,
		ScaleFactor:         p.frame.ScaleFactor,
		ConfidenceThreshold: params.ConfidenceThreshold,
		IOUThreshold:        params.IOUThreshold,
		MinFaceSize:         params.MinFaceSize,
	}

	if err := a.config.Store.Runs().Create(run); err != nil {
		return "", err
	}
	if err := a.config.Store.Faces().CreateBatch(run.ID, dets); err != nil {
		return "", err
	}
	return run.ID, nil
}

func (a *App) runHooks(ctx context.Context, res Result, stats *Stats) {
	if a.config.Hooks == nil {
		return
	}

	ev := &hook.Event{
		RunID:       res.RunID,
		Source:      a.config.SourceName,
		FrameIndex:  res.Index,
		ImageWidth:  res.Frame.Width,
		ImageHeight: res.Frame.Height,
		Detections:  res.Detections,
	}

	for _, h := range a.config.Hooks.List() {
		if !h.Accepts(len(res.Detections)) {
			continue
		}

		fields := logging.Fields{"hook": h.Manifest.Name, "frame": res.Index}

		resp, err := a.executor.Execute(ctx, h, ev)
		if err != nil {
			stats.HookFailures++
			fields["error"] = err.Error()
			a.log.WithFields(fields).Warn("hook failed")
			continue
		}
		if !resp.Success {
			stats.HookFailures++
			fields["error"] = resp.Error
			a.log.WithFields(fields).Warn("hook reported failure")
		}
	}
}

func (a *App) skip(index int, err error, stats *Stats) {
	stats.Skipped++
	a.log.WithFields(logging.Fields{
		"frame": index,
		"error": err.Error(),
	}).Warn("frame skipped")
}
