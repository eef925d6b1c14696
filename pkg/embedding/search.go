package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// ClusterMatch is one nearby cluster returned by Search, along with its
// closest member embeddings.
type ClusterMatch struct {
	Cluster        models.ErrorCluster
	NearestMembers []string
	Distance       float64
}

// Searcher answers similar_errors lookups against the last-7-days
// collection (spec §4.5: "collection limited to the last 7 days").
type Searcher struct {
	dbtx     db.DBTX
	embedder Client
}

func NewSearcher(dbtx db.DBTX, embedder Client) *Searcher {
	return &Searcher{dbtx: dbtx, embedder: embedder}
}

// SearchText embeds text and returns the k nearest clusters.
func (s *Searcher) SearchText(ctx context.Context, text string, k int) ([]ClusterMatch, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding search text: %w", err)
	}
	return s.nearestClusters(ctx, vec, k)
}

// SearchRow looks up the embedding already stored for rowID and returns the
// k nearest clusters to its vector.
func (s *Searcher) SearchRow(ctx context.Context, rowID string, k int) ([]ClusterMatch, error) {
	var rawVec pgvector.Vector
	row := s.dbtx.QueryRow(ctx, `SELECT vector FROM error_embeddings WHERE source_id = $1 ORDER BY ts DESC LIMIT 1`, rowID)
	if err := row.Scan(&rawVec); err != nil {
		return nil, fmt.Errorf("no embedding found for row %s: %w", rowID, err)
	}
	return s.nearestClusters(ctx, rawVec.Slice(), k)
}

func (s *Searcher) nearestClusters(ctx context.Context, vec []float32, k int) ([]ClusterMatch, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, member_ids, first_seen, last_seen, count, representative_message, service, severity, centroid <=> $1 AS distance
		 FROM error_clusters WHERE last_seen > now() - interval '7 days' ORDER BY distance ASC LIMIT $2`,
		pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("querying nearest clusters: %w", err)
	}
	defer rows.Close()

	var out []ClusterMatch
	for rows.Next() {
		var m ClusterMatch
		var firstSeen, lastSeen time.Time
		if err := rows.Scan(&m.Cluster.ID, &m.Cluster.MemberIDs, &firstSeen, &lastSeen,
			&m.Cluster.Count, &m.Cluster.RepresentativeMessage, &m.Cluster.Service, &m.Cluster.Severity, &m.Distance); err != nil {
			return nil, fmt.Errorf("scanning cluster match: %w", err)
		}
		m.Cluster.FirstSeen = firstSeen
		m.Cluster.LastSeen = lastSeen
		if len(m.Cluster.MemberIDs) > 5 {
			m.NearestMembers = m.Cluster.MemberIDs[:5]
		} else {
			m.NearestMembers = m.Cluster.MemberIDs
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
