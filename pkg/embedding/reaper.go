package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/logwatch/pkg/db"
)

// Reaper periodically deletes embeddings past their TTL and decrements
// their cluster's member count, following the same Start/Stop background
// loop shape as the teacher's cleanup.Service.
type Reaper struct {
	dbtx     db.DBTX
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReaper builds a Reaper sweeping every interval.
func NewReaper(dbtx db.DBTX, interval time.Duration) *Reaper {
	return &Reaper{dbtx: dbtx, interval: interval}
}

// Start launches the background sweep loop.
func (r *Reaper) Start(ctx context.Context) {
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)
	slog.Info("embedding TTL reaper started", "interval", r.interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (r *Reaper) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	slog.Info("embedding TTL reaper stopped")
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.done)

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep deletes every embedding past its TTL and folds its removal out of
// whatever cluster it belonged to.
func (r *Reaper) sweep(ctx context.Context) {
	rows, err := r.dbtx.Query(ctx, `SELECT id, source_id, cluster_id FROM error_embeddings WHERE ttl_ts < now()`)
	if err != nil {
		slog.Error("embedding reaper sweep query failed", "error", err)
		return
	}

	type expired struct {
		id        string
		sourceID  string
		clusterID *string
	}
	var toDelete []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.id, &e.sourceID, &e.clusterID); err != nil {
			slog.Error("embedding reaper scan failed", "error", err)
			continue
		}
		toDelete = append(toDelete, e)
	}
	rows.Close()

	for _, e := range toDelete {
		if e.clusterID != nil {
			if _, err := r.dbtx.Exec(ctx,
				`UPDATE error_clusters SET member_ids = array_remove(member_ids, $2), count = GREATEST(count - 1, 0) WHERE id = $1`,
				*e.clusterID, e.sourceID); err != nil {
				slog.Error("embedding reaper cluster update failed", "error", err, "embedding_id", e.id)
				continue
			}
		}
		if _, err := r.dbtx.Exec(ctx, `DELETE FROM error_embeddings WHERE id = $1`, e.id); err != nil {
			slog.Error("embedding reaper delete failed", "error", err, "embedding_id", e.id)
		}
	}

	if len(toDelete) > 0 {
		slog.Info("embedding reaper evicted expired embeddings", "count", len(toDelete))
	}
}
