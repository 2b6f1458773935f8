package detector

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DetectBatch decodes independent frames concurrently on at most
// Config.BatchWorkers goroutines. Results are returned in input order. The
// first failing frame aborts the batch and its error is returned.
func (d *SCRFD) DetectBatch(ctx context.Context, frames []*Frame, params Params) ([][]Detection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	results := make([][]Detection, len(frames))
	if len(frames) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.BatchWorkers)

	for i, frame := range frames {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dets, err := d.Detect(frame, params)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			results[i] = dets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
