package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrLeaseHeld means another run currently holds the lease for the key.
var ErrLeaseHeld = errors.New("lease held by another run")

const releaseTimeout = 10 * time.Second

// Key is the lease key serializing runs for one service.
func Key(service string) string {
	return "ecsdeploy:" + service
}

// Conn is a single dedicated database session. Advisory locks belong to the
// session that took them, so the lease keeps one Conn until release.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Release()
}

// Postgres grants leases as session-level advisory locks.
type Postgres struct {
	logger  zerolog.Logger
	acquire func(ctx context.Context) (Conn, error)
}

// NewPostgres creates a Postgres lease backed by pool.
func NewPostgres(logger zerolog.Logger, pool *pgxpool.Pool) *Postgres {
	return newPostgres(logger, func(ctx context.Context) (Conn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

func newPostgres(logger zerolog.Logger, acquire func(ctx context.Context) (Conn, error)) *Postgres {
	return &Postgres{
		logger:  logger.With().Str("component", "lease").Logger(),
		acquire: acquire,
	}
}

// Acquire takes the lease for key without blocking. It returns ErrLeaseHeld
// when another session holds it.
func (p *Postgres) Acquire(ctx context.Context, key string) (func(), error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lease connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("take lease %s: %w", key, err)
	}
	if !ok {
		conn.Release()
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, key)
	}

	p.logger.Debug().Str("key", key).Msg("lease acquired")
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if _, err := conn.Exec(rctx, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("lease release failed, session close will drop it")
		}
		conn.Release()
	}, nil
}

// Noop grants every lease. It is used when no database is configured.
type Noop struct{}

func (Noop) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}
