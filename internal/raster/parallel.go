package raster

import (
	"context"
	"runtime"

	"github.com/airbusgeo/telluric/internal/utils"
	"golang.org/x/sync/errgroup"
)

// minChunkSize is the minimum number of pixels processed by a goroutine
const minChunkSize = 64 * 1024

// ForEachChunk calls fn on disjoint chunks [start, end) covering [0, n), in parallel.
// The first error cancels the remaining chunks.
func ForEachChunk(ctx context.Context, n int, fn func(start, end int) error) error {
	workers := runtime.GOMAXPROCS(0)
	if maxWorkers := (n + minChunkSize - 1) / minChunkSize; maxWorkers < workers {
		workers = maxWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range utils.Chunks(n, workers) {
		chunk := chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(chunk[0], chunk[1])
		})
	}
	return g.Wait()
}
