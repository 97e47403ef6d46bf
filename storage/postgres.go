// Package storage provides the two ledger.Store implementations: Postgres
// (the production backend, migrated with golang-migrate) and Memory (a
// mutex-protected in-process store for tests and headless CI).
//
// Postgres is adapted from control-plane/internal/database/postgres.go
// (pool setup, embedded migrations via iofs) and
// control-plane/internal/repository/key_repo.go (the
// `version = version + 1 ... RETURNING version` optimistic-concurrency
// pattern, generalized here into a conditional INSERT keyed on the prior
// tip).
package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/config"
	"github.com/Bidon15/creatorledger/identity"
	"github.com/Bidon15/creatorledger/ledger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres wraps a pgx connection pool and satisfies ledger.Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a connection pool per cfg and verifies it with a ping.
// It does not run migrations; call RunMigrations explicitly (C6 is a
// distinct, caller-invoked step per the migration runner's design).
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// RunMigrations applies every migration strictly greater than the stored
// schema_version, in ascending order, each inside its own transaction —
// golang-migrate's Postgres driver wraps each migration file in a
// transaction by default.
func (p *Postgres) RunMigrations(cfg config.DatabaseConfig) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migrations source: %w", err)
	}
	// golang-migrate picks its database driver from the URL scheme, so the
	// key/value DSN is rewritten as a postgres:// URL here.
	dbURL := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}).String()
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

var _ ledger.Store = (*Postgres)(nil)

// PutIdentity inserts a new creator row. Creators are created exactly
// once; calling PutIdentity twice for the same creator_id is a storage
// error (primary key violation).
func (p *Postgres) PutIdentity(ctx context.Context, id *identity.Identity) error {
	const q = `
		INSERT INTO creators (creator_id, display_name, public_key, created_at, row_version)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := p.pool.Exec(ctx, q, id.CreatorID, id.DisplayName, id.PublicKey.Bytes(), id.CreatedAt, id.RowVersion)
	if err != nil {
		return fmt.Errorf("%w: insert creator: %v", creatorledger.ErrStorage, err)
	}
	return nil
}

// IdentityByID implements ledger.Store.
func (p *Postgres) IdentityByID(ctx context.Context, creatorID string) (*identity.Identity, error) {
	const q = `SELECT creator_id, display_name, public_key, created_at, row_version FROM creators WHERE creator_id = $1`
	var (
		id     identity.Identity
		pubKey []byte
	)
	err := p.pool.QueryRow(ctx, q, creatorID).Scan(&id.CreatorID, &id.DisplayName, &pubKey, &id.CreatedAt, &id.RowVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: creator %q", creatorledger.ErrUnknownCreator, creatorID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select creator: %v", creatorledger.ErrStorage, err)
	}
	pub, err := creatorledger.PublicKeyFromBytes(pubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: stored public key: %v", creatorledger.ErrStorage, err)
	}
	id.PublicKey = pub
	return &id, nil
}

// GetTip implements ledger.Store.
func (p *Postgres) GetTip(ctx context.Context, creatorID string) (ledger.Tip, error) {
	if _, err := p.IdentityByID(ctx, creatorID); err != nil {
		return ledger.Tip{}, err
	}
	const q = `
		SELECT seq, this_hash, row_version FROM ledger_events
		WHERE creator_id = $1 ORDER BY seq DESC LIMIT 1`
	var (
		seq        uint64
		thisHash   []byte
		rowVersion int64
	)
	err := p.pool.QueryRow(ctx, q, creatorID).Scan(&seq, &thisHash, &rowVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Tip{}, nil
	}
	if err != nil {
		return ledger.Tip{}, fmt.Errorf("%w: select tip: %v", creatorledger.ErrStorage, err)
	}
	var h [32]byte
	copy(h[:], thisHash)
	return ledger.Tip{Seq: seq, ThisHash: h, RowVersion: rowVersion}, nil
}

// InsertIfTipMatches implements ledger.Store. It runs the insert inside a
// transaction that re-reads the tip with a row lock and aborts (reporting
// a concurrency conflict) if the tip moved since the caller observed it —
// the transaction-with-repeated-select strategy the append protocol
// explicitly allows as an alternative to a bare unique index. For the first
// event on a creator, the tip select has no row to lock, so a race is only
// caught by the (creator_id, seq) primary key rejecting the losing insert;
// that case is mapped back to ErrConcurrencyConflict too (see
// isUniqueViolation) rather than surfacing a raw storage error.
func (p *Postgres) InsertIfTipMatches(ctx context.Context, ev ledger.Event, expectedTip ledger.Tip) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", creatorledger.ErrStorage, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const tipQ = `
		SELECT seq, this_hash, row_version FROM ledger_events
		WHERE creator_id = $1 ORDER BY seq DESC LIMIT 1 FOR UPDATE`
	var (
		curSeq        uint64
		curHash       []byte
		curRowVersion int64
	)
	err = tx.QueryRow(ctx, tipQ, ev.CreatorID).Scan(&curSeq, &curHash, &curRowVersion)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: select tip for update: %v", creatorledger.ErrStorage, err)
	}

	var curHash32 [32]byte
	copy(curHash32[:], curHash)
	actualTip := ledger.Tip{Seq: curSeq, ThisHash: curHash32, RowVersion: curRowVersion}
	if actualTip != expectedTip {
		return fmt.Errorf("%w: tip moved for creator %q", creatorledger.ErrConcurrencyConflict, ev.CreatorID)
	}

	const insertQ = `
		INSERT INTO ledger_events (creator_id, seq, kind, payload, timestamp, prev_hash, this_hash, signature, row_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.Exec(ctx, insertQ,
		ev.CreatorID, ev.Seq, ev.Kind, ev.Payload, ev.Timestamp,
		ev.PrevHash[:], ev.ThisHash[:], ev.Signature.Bytes(), ev.RowVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Both sides of a genesis-event race see no tip row to lock
			// (FOR UPDATE has nothing to wait on) and agree on the same
			// expectedTip, so the conflict only surfaces here, as the
			// (creator_id, seq) primary key rejecting the loser's insert.
			return fmt.Errorf("%w: tip moved for creator %q", creatorledger.ErrConcurrencyConflict, ev.CreatorID)
		}
		return fmt.Errorf("%w: insert event: %v", creatorledger.ErrStorage, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %v", creatorledger.ErrStorage, err)
	}
	return nil
}

// GetEvent implements ledger.Store.
func (p *Postgres) GetEvent(ctx context.Context, creatorID string, seq uint64) (ledger.Event, bool, error) {
	const q = `
		SELECT creator_id, seq, kind, payload, timestamp, prev_hash, this_hash, signature, row_version
		FROM ledger_events WHERE creator_id = $1 AND seq = $2`
	ev, ok, err := scanEventRow(p.pool.QueryRow(ctx, q, creatorID, seq))
	if err != nil {
		return ledger.Event{}, false, fmt.Errorf("%w: select event: %v", creatorledger.ErrStorage, err)
	}
	return ev, ok, nil
}

// ListEvents implements ledger.Store.
func (p *Postgres) ListEvents(ctx context.Context, creatorID string, fromSeq, toSeq uint64) ([]ledger.Event, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if toSeq == 0 {
		const q = `
			SELECT creator_id, seq, kind, payload, timestamp, prev_hash, this_hash, signature, row_version
			FROM ledger_events WHERE creator_id = $1 AND seq >= $2 ORDER BY seq ASC`
		rows, err = p.pool.Query(ctx, q, creatorID, fromSeq)
	} else {
		const q = `
			SELECT creator_id, seq, kind, payload, timestamp, prev_hash, this_hash, signature, row_version
			FROM ledger_events WHERE creator_id = $1 AND seq >= $2 AND seq <= $3 ORDER BY seq ASC`
		rows, err = p.pool.Query(ctx, q, creatorID, fromSeq, toSeq)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", creatorledger.ErrStorage, err)
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		ev, ok, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan event: %v", creatorledger.ErrStorage, err)
		}
		if ok {
			events = append(events, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list events: %v", creatorledger.ErrStorage, err)
	}
	return events, nil
}

// pgUniqueViolation is the Postgres error code for a unique/primary-key
// constraint violation (23505).
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// rowScanner abstracts over pgx.Row and pgx.Rows, both of which implement
// Scan.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventRow(row rowScanner) (ledger.Event, bool, error) {
	var (
		ev                      ledger.Event
		prevHash, thisHash, sig []byte
	)
	err := row.Scan(&ev.CreatorID, &ev.Seq, &ev.Kind, &ev.Payload, &ev.Timestamp, &prevHash, &thisHash, &sig, &ev.RowVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Event{}, false, nil
	}
	if err != nil {
		return ledger.Event{}, false, err
	}
	copy(ev.PrevHash[:], prevHash)
	copy(ev.ThisHash[:], thisHash)
	signature, err := creatorledger.SignatureFromBytes(sig)
	if err != nil {
		return ledger.Event{}, false, err
	}
	ev.Signature = signature
	return ev, true, nil
}
