// Package store persists sessions, messages, checkpoints, and tool
// invocations against Postgres via db.DBTX, adapting the teacher's
// SessionService transaction idiom (pkg/services/session_service.go) away
// from ent's code-generated builder and onto raw SQL.
//
// Every session, message and checkpoint write for a given session is
// serialized through a per-session in-process mutex (spec §4.9:
// "single-writer-per-session"); tool-invocation telemetry rows are written
// without it — the
// orchestrator run owning a session is the only writer, but the HTTP
// layer and the tool runtime both call into Store concurrently from
// goroutines handling the same run, so the mutex protects against
// interleaved appends reordering a session's timeline.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/logwatch/pkg/apperrors"
	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/models"
)

// Store is the persistence boundary for C9 (Session Store).
type Store struct {
	dbtx db.DBTX

	mu      sync.Mutex
	writers map[string]*sync.Mutex
}

// New builds a Store backed by dbtx (a pool, or a transaction handed down
// from a caller that needs cross-table atomicity).
func New(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx, writers: make(map[string]*sync.Mutex)}
}

// sessionLock returns the keyed mutex serializing writes to sessionID,
// creating one on first use. Locks are never removed — session counts are
// bounded by real usage, not attacker-controlled input, so the map can't be
// used to exhaust memory the way an unbounded per-request key could.
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.writers[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.writers[sessionID] = l
	}
	return l
}

// CreateSession validates userID and inserts a new active session, following
// the teacher's validate-then-transact shape but with a fixed SQL insert
// instead of an ent builder chain.
func (s *Store) CreateSession(ctx context.Context, userID, title string) (*models.Session, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.KindUsage, "", "user_id is required")
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedTS: now,
		UpdatedTS: now,
		Status:    models.SessionStatusActive,
	}

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO sessions (id, user_id, title, created_ts, updated_ts, status, total_messages, total_cost)
		 VALUES ($1,$2,$3,$4,$5,$6,0,0)`,
		session.ID, session.UserID, nullIfEmpty(session.Title), session.CreatedTS, session.UpdatedTS, string(session.Status))
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return session, nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, user_id, title, created_ts, updated_ts, status, total_messages, total_cost, tags
		 FROM sessions WHERE id = $1`, id)

	var sess models.Session
	var title *string
	var tags []string
	if err := row.Scan(&sess.ID, &sess.UserID, &title, &sess.CreatedTS, &sess.UpdatedTS, &sess.Status,
		&sess.Metadata.TotalMessages, &sess.Metadata.TotalCost, &tags); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.New(apperrors.KindUsage, "", fmt.Sprintf("session %s not found", id))
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if title != nil {
		sess.Title = *title
	}
	sess.Metadata.Tags = tags
	return &sess, nil
}

// ListSessions returns sessions for userID ordered most-recently-updated
// first, the shape GET /api/sessions serves.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, user_id, title, created_ts, updated_ts, status, total_messages, total_cost, tags
		 FROM sessions WHERE user_id = $1 ORDER BY updated_ts DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var sess models.Session
		var title *string
		var tags []string
		if err := rows.Scan(&sess.ID, &sess.UserID, &title, &sess.CreatedTS, &sess.UpdatedTS, &sess.Status,
			&sess.Metadata.TotalMessages, &sess.Metadata.TotalCost, &tags); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		if title != nil {
			sess.Title = *title
		}
		sess.Metadata.Tags = tags
		out = append(out, sess)
	}
	return out, rows.Err()
}

// AppendMessage appends msg to its session's timeline and rolls the
// session's message count / cost / updated_ts forward, all under the
// session's write lock so concurrent appends cannot interleave.
func (s *Store) AppendMessage(ctx context.Context, msg models.Message) (*models.Message, error) {
	if msg.SessionID == "" {
		return nil, apperrors.New(apperrors.KindUsage, "", "session_id is required")
	}

	lock := s.sessionLock(msg.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.TS.IsZero() {
		msg.TS = time.Now().UTC()
	}

	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO messages (id, session_id, role, content, ts, tokens, tool_calls, cost_impact, latency_ms)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.TS,
		nullIfZero(msg.Metadata.Tokens), msg.Metadata.ToolCalls, nullIfZeroF(msg.Metadata.CostImpact), nullIfZero64(msg.Metadata.LatencyMs))
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	_, err = s.dbtx.Exec(ctx,
		`UPDATE sessions SET total_messages = total_messages + 1, total_cost = total_cost + $2, updated_ts = $3 WHERE id = $1`,
		msg.SessionID, msg.Metadata.CostImpact, msg.TS)
	if err != nil {
		return nil, fmt.Errorf("updating session rollup: %w", err)
	}
	return &msg, nil
}

// ListMessages returns every message for sessionID in TS order, the shape
// GET /api/sessions/:id/messages serves.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, session_id, role, content, ts, tokens, tool_calls, cost_impact, latency_ms
		 FROM messages WHERE session_id = $1 ORDER BY ts ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var tokens *int
		var costImpact *float64
		var latencyMs *int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.TS, &tokens, &m.Metadata.ToolCalls, &costImpact, &latencyMs); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		if tokens != nil {
			m.Metadata.Tokens = *tokens
		}
		if costImpact != nil {
			m.Metadata.CostImpact = *costImpact
		}
		if latencyMs != nil {
			m.Metadata.LatencyMs = *latencyMs
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullIfZeroF(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nullIfZero64(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
