package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// shortText builds the fixed "{severity} | {service} | {message}" form the
// writer embeds (spec §4.5 step 1), truncating the message to keep the
// embedding call cheap and the representative text readable.
func shortText(row models.CanonicalLogRow) string {
	msg := row.DisplayMessage()
	const maxLen = 200
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return fmt.Sprintf("%s | %s | %s", row.Severity, row.ServiceName, msg)
}

// ClusterWriter embeds ERROR/CRITICAL rows and upserts them into
// error_embeddings/error_clusters, serializing per-cluster writes with a
// Postgres advisory lock the same way the teacher's ConnectionManager
// serializes per-channel LISTEN/UNLISTEN (pkg/events/manager.go) — here the
// "channel" being locked is a cluster id instead of a notify channel. The
// lock is transaction-scoped, so the whole find-or-create-and-write
// sequence runs inside one db.Client.WithTx call.
type ClusterWriter struct {
	client    *db.Client
	embedder  Client
	threshold float64
	ttl       time.Duration
}

// NewClusterWriter builds a ClusterWriter; threshold is the cosine-similarity
// cutoff (spec: tau=0.85 similarity): a new embedding joins the nearest
// existing cluster when its cosine distance to that cluster is at most
// 1-threshold, and starts a new cluster otherwise.
func NewClusterWriter(client *db.Client, embedder Client, threshold float64, ttl time.Duration) *ClusterWriter {
	return &ClusterWriter{client: client, embedder: embedder, threshold: threshold, ttl: ttl}
}

// Index embeds row's display message and assigns it to a cluster, creating
// one if no existing cluster is similar enough.
func (w *ClusterWriter) Index(ctx context.Context, row models.CanonicalLogRow) error {
	if row.Severity.Level() < models.SeverityError.Level() {
		return nil // only ERROR/CRITICAL (and above) rows are embedded
	}

	if row.DisplayMessage() == "" {
		return nil
	}
	text := shortText(row)

	vec, err := w.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding row %s: %w", row.LogID, err)
	}

	return w.client.WithTx(ctx, func(tx pgx.Tx) error {
		clusterID, err := w.findOrCreateCluster(ctx, tx, vec, row)
		if err != nil {
			return err
		}

		embeddingID := uuid.NewString()
		now := time.Now()
		_, err = tx.Exec(ctx,
			`INSERT INTO error_embeddings (id, vector, text, severity, service, ts, source_id, ttl_ts, cluster_id)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			embeddingID, pgvector.NewVector(vec), text, string(row.Severity), row.ServiceName, now, row.LogID, now.Add(w.ttl), clusterID)
		return err
	})
}

// findOrCreateCluster locks the candidate cluster (or a synthetic
// per-service namespace when none exists) via pg_advisory_xact_lock, held
// for the remainder of tx, then either appends the row to the nearest
// cluster's member list (bumping count and last_seen; the centroid is left
// as set at creation) or creates a new cluster centred on vec.
func (w *ClusterWriter) findOrCreateCluster(ctx context.Context, tx pgx.Tx, vec []float32, row models.CanonicalLogRow) (string, error) {
	candidateID, dist, err := nearestCluster(ctx, tx, vec)
	if err != nil {
		return "", err
	}

	lockKey := candidateID
	if lockKey == "" {
		lockKey = "new:" + row.ServiceName
	}
	if err := advisoryLock(ctx, tx, lockKey); err != nil {
		return "", err
	}

	if candidateID != "" && dist <= 1-w.threshold {
		_, err := tx.Exec(ctx,
			`UPDATE error_clusters SET member_ids = array_append(member_ids, $2), count = count + 1, last_seen = now() WHERE id = $1`,
			candidateID, row.LogID)
		return candidateID, err
	}

	clusterID := uuid.NewString()
	_, err = tx.Exec(ctx,
		`INSERT INTO error_clusters (id, centroid, member_ids, first_seen, last_seen, count, representative_message, service, severity)
		 VALUES ($1,$2,$3,now(),now(),1,$4,$5,$6)`,
		clusterID, pgvector.NewVector(vec), []string{row.LogID}, row.DisplayMessage(), row.ServiceName, string(row.Severity))
	return clusterID, err
}

// nearestCluster finds the closest existing cluster centroid by cosine
// distance, using pgvector's `<=>` operator server-side. No existing
// clusters is reported as ("", +Inf, nil) — that's a valid state, not an
// error.
func nearestCluster(ctx context.Context, tx pgx.Tx, vec []float32) (id string, distance float64, err error) {
	row := tx.QueryRow(ctx,
		`SELECT id, centroid <=> $1 AS distance FROM error_clusters ORDER BY distance ASC LIMIT 1`,
		pgvector.NewVector(vec))

	if scanErr := row.Scan(&id, &distance); scanErr != nil {
		return "", math.Inf(1), nil
	}
	return id, distance, nil
}

// advisoryLock acquires a transaction-scoped advisory lock keyed by the
// hash of key, serializing concurrent cluster writers the way the
// teacher's ConnectionManager serializes per-channel subscription state.
func advisoryLock(ctx context.Context, tx pgx.Tx, key string) error {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(h.Sum64()))
	return err
}
