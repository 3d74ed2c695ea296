package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
)

var _ combat.Store = (*Store)(nil)

// DefaultRetries is how many times a transaction is retried after a
// serialization failure when no other count is configured.
const DefaultRetries = 3

// Store is a combat.Store whose units of work are SERIALIZABLE transactions.
type Store struct {
	db      *pgxpool.Pool
	retries int
	logger  *zap.Logger
}

// NewStore returns a Store over db. A negative retries selects DefaultRetries.
//
// Precondition: db must be open and migrated; logger must be non-nil.
func NewStore(db *pgxpool.Pool, retries int, logger *zap.Logger) *Store {
	if retries < 0 {
		retries = DefaultRetries
	}
	return &Store{db: db, retries: retries, logger: logger.Named("postgres")}
}

// WithTx implements combat.Store. fn runs in a SERIALIZABLE transaction and is
// run again, up to the retry count, when the commit loses a serialization race.
//
// Postcondition: the writes of fn are committed iff WithTx returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx combat.Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.attempt(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		s.logger.Debug("retrying transaction", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return fmt.Errorf("transaction abandoned after %d retries: %w", s.retries, err)
}

func (s *Store) attempt(ctx context.Context, fn func(tx combat.Tx) error) (err error) {
	pgtx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = pgtx.Rollback(ctx)
		}
	}()
	if err = fn(&tx{tx: pgtx}); err != nil {
		return err
	}
	if err = pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isSerializationFailure reports SQLSTATE 40001 (serialization_failure) and
// 40P01 (deadlock_detected), both of which are safe to retry.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func notFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, combat.ErrNotFound)
}
