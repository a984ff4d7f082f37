/*
Package ledger implements the durable per-user economic record: identity,
cumulative score, currency balance, and a per-feature JSON blob.

All mutation goes through this store's API and is transactional. Concurrent
currency adjustments for the same user are serialized in the persistence
layer (per-user advisory transaction lock plus a row lock), not with
in-process locks, so consistency survives handler fan-out and process
restarts alike.
*/
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"howdybot/internal/app/db"
	"howdybot/internal/pkg/logx"
)

// Record is a full ledger row.
type Record struct {
	UserID         string          `json:"userId"`
	Handle         string          `json:"handle"`
	PermanentScore int64           `json:"permanentScore"`
	Currency       int64           `json:"currency"`
	FeatureData    json.RawMessage `json:"featureData"`
}

// Store provides ledger operations over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New creates a ledger store. The pool's schema must already be migrated
// (db.NewPool does this).
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		logger: logx.Logger().With().Str("component", "ledger").Logger(),
	}
}

// Upsert ensures a ledger record exists for userID and that its handle
// reflects the most recently observed value. Idempotent; safe to call on
// every message.
func (s *Store) Upsert(ctx context.Context, userID, handle string) error {
	if userID == "" || handle == "" {
		return fmt.Errorf("ledger: upsert requires user id and handle")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_stats (user_id, username)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username
	`, userID, handle)
	if err != nil {
		return fmt.Errorf("ledger: upsert %s: %w", userID, err)
	}
	return nil
}

// AdjustCurrency atomically applies delta to the user's balance and returns
// the new balance. The read-modify-write runs inside one transaction holding
// the user's advisory lock and the row lock, so concurrent adjustments for
// the same user serialize. A delta that would drive the balance negative is
// rejected with ErrInsufficientFunds and no effect.
func (s *Store) AdjustCurrency(ctx context.Context, userID string, delta int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: begin adjust: %w", err)
	}
	defer tx.Rollback(ctx)

	// Advisory xact lock keyed by the user id. Released automatically at
	// commit/rollback; keeps same-user adjustments strictly serial even
	// across processes.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return 0, fmt.Errorf("ledger: advisory lock %s: %w", userID, err)
	}

	var current int64
	err = tx.QueryRow(ctx, `SELECT currency FROM user_stats WHERE user_id = $1 FOR UPDATE`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: read balance %s: %w", userID, err)
	}

	next := current + delta
	if next < 0 {
		s.logger.Warn().
			Str("user_id", userID).
			Int64("balance", current).
			Int64("delta", delta).
			Msg("Currency adjustment rejected: insufficient funds")
		return current, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE user_stats SET currency = $2 WHERE user_id = $1`, userID, next); err != nil {
		// The CHECK constraint is a backstop; with the locks above it should
		// be unreachable, but map it to the caller-facing condition anyway.
		if db.IsCheckViolation(err) {
			return current, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("ledger: write balance %s: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ledger: commit adjust %s: %w", userID, err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int64("delta", delta).
		Int64("balance", next).
		Msg("Currency adjusted")
	return next, nil
}

// AddScore increments the user's cumulative score. The score is monotonic:
// negative increments are rejected with ErrNegativeScore.
func (s *Store) AddScore(ctx context.Context, userID string, points int64) error {
	if points < 0 {
		return ErrNegativeScore
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE user_stats SET permanent_score = permanent_score + $2 WHERE user_id = $1
	`, userID, points)
	if err != nil {
		return fmt.Errorf("ledger: add score %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MergeFeatureData merges partial into the user's blob under featureKey.
// Sibling keys belonging to other features are never disturbed: the update
// replaces only feature_data[featureKey], merging partial over whatever
// object is already stored there.
func (s *Store) MergeFeatureData(ctx context.Context, userID, featureKey string, partial map[string]any) error {
	if featureKey == "" {
		return fmt.Errorf("ledger: merge requires a feature key")
	}

	encoded, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("ledger: encode feature data for %s: %w", featureKey, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE user_stats
		SET feature_data = jsonb_set(
			COALESCE(feature_data, '{}'::jsonb),
			ARRAY[$2],
			COALESCE(feature_data -> $2, '{}'::jsonb) || $3::jsonb,
			true
		)
		WHERE user_id = $1
	`, userID, featureKey, string(encoded))
	if err != nil {
		return fmt.Errorf("ledger: merge feature data %s/%s: %w", userID, featureKey, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get reads the full ledger record for userID.
func (s *Store) Get(ctx context.Context, userID string) (Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, username, permanent_score, currency, feature_data
		FROM user_stats WHERE user_id = $1
	`, userID).Scan(&rec.UserID, &rec.Handle, &rec.PermanentScore, &rec.Currency, &rec.FeatureData)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("ledger: get %s: %w", userID, err)
	}
	return rec, nil
}
