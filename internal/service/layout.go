package service

import (
	"context"

	"forcegraph/internal/engine"
)

// Settle steps eng without a frame clock until the layout cools or
// maxFrames frames have been stepped. A non-positive maxFrames only stops
// at cooldown. It returns the number of frames stepped.
func Settle(ctx context.Context, eng *engine.Engine, maxFrames int) (int, error) {
	frames := 0
	for maxFrames <= 0 || frames < maxFrames {
		if frames%100 == 0 {
			if err := ctx.Err(); err != nil {
				return frames, err
			}
		}
		if !eng.StepFrame() {
			break
		}
		frames++
	}
	return frames, nil
}
