// Package tasks wires maintenance jobs into the scheduler.
package tasks

import (
	"context"
	"time"

	"github.com/chatarr/chatarr/internal/scheduler"
	"github.com/chatarr/chatarr/internal/search"
)

const CacheSweepTaskID = "cache-sweep"

// RegisterCacheSweepTask registers the periodic search cache sweep. Lazy
// eviction handles re-queried keys; the sweep reclaims memory for keys
// that are never asked for again.
func RegisterCacheSweepTask(sched *scheduler.Scheduler, cache *search.Cache) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CacheSweepTaskID,
		Name:        "Search Cache Sweep",
		Description: "Evicts expired search cache entries",
		Interval:    time.Minute,
		Func: func(ctx context.Context) error {
			cache.Sweep()
			return nil
		},
	})
}
