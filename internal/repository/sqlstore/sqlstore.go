package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store implements repository.Store on database/sql
type Store struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration

	mu    sync.RWMutex
	rules map[string][]domain.Constraint // by label
}

// Option configures a Store
type Option func(*Store)

// WithTimeout bounds every store operation
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// NewSQLite opens (or creates) a SQLite database at path. Use ":memory:"
// for a throwaway database. Several stores may share one database file.
func NewSQLite(path string, opts ...Option) (*Store, error) {
	return New(SQLite, sqliteDSN(path), opts...)
}

// sqliteDSN applies the connection settings every handle on a shared file
// needs: transactions take the write lock at BEGIN and wait on busy_timeout
// for other handles, and file databases run in WAL mode.
func sqliteDSN(path string) string {
	params := []string{
		"_txlock=immediate",
		"_pragma=busy_timeout(10000)",
		"_pragma=foreign_keys(1)",
	}
	if path != ":memory:" && !strings.Contains(path, "mode=memory") {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// NewPostgres connects to the Postgres database named by dsn
func NewPostgres(dsn string, opts ...Option) (*Store, error) {
	return New(Postgres, dsn, opts...)
}

// New opens a store for the given dialect and migrates its schema
func New(d Dialect, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.maxConns > 0 {
		db.SetMaxOpenConns(d.maxConns)
	}

	s := &Store{
		db:      db,
		dialect: d,
		rules:   make(map[string][]domain.Constraint),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := s.withTimeout(context.Background())
	defer cancel()

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.loadConstraints(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load constraints: %w", err)
	}

	log.Debug("sql store opened", "dialect", d.Name)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Dialect reports which engine the store runs on
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// withTimeout applies the per-operation timeout, if any
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// inTx runs fn in a transaction, committing on success
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lock takes a transaction-scoped advisory lock on key where supported
func (s *Store) lock(ctx context.Context, tx *sql.Tx, key string) error {
	if !s.dialect.advisoryLocks {
		return nil
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`SELECT pg_advisory_xact_lock(?)`), lockID(key)); err != nil {
		return fmt.Errorf("failed to acquire merge lock: %w", err)
	}
	return nil
}

// ============================================================================
// Constraints
// ============================================================================

// InstallConstraint records a constraint and checks existing data against
// it. Installing the same constraint twice is a no-op.
func (s *Store) InstallConstraint(ctx context.Context, c domain.Constraint) error {
	if !c.Rule.Valid() {
		return &domain.UnsupportedConstraintError{Label: c.Label, Property: c.Property, Reason: fmt.Sprintf("unknown rule %q", c.Rule)}
	}

	if s.hasConstraint(c) {
		return nil
	}

	if c.Rule == domain.RuleUnique {
		for _, existing := range s.constraintsFor(c.Label) {
			if existing.Rule == domain.RuleUnique && existing.Property != c.Property {
				return &domain.UnsupportedConstraintError{
					Label:    c.Label,
					Property: c.Property,
					Reason:   fmt.Sprintf("label already unique on %s", existing.Property),
				}
			}
		}
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.lock(ctx, tx, "constraint:"+c.Name()); err != nil {
			return err
		}

		switch c.Rule {
		case domain.RuleUnique:
			if err := s.backfillUnique(ctx, tx, c); err != nil {
				return err
			}
		case domain.RuleNotNull:
			if err := s.checkExistingNotNull(ctx, tx, c); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`
			INSERT INTO constraints (label, property, rule) VALUES (?, ?, ?)
			ON CONFLICT (label, property, rule) DO NOTHING
		`), c.Label, c.Property, string(c.Rule)); err != nil {
			return fmt.Errorf("failed to record constraint %s: %w", c.Name(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.addConstraint(c)
	return nil
}

func (s *Store) backfillUnique(ctx context.Context, tx *sql.Tx, c domain.Constraint) error {
	var dupes int
	err := tx.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT COUNT(*) FROM (
			SELECT p.value FROM node_properties p
			JOIN node_labels l ON l.node_id = p.node_id AND l.label = ?
			WHERE p.name = ?
			GROUP BY p.value HAVING COUNT(*) > 1
		) d
	`), c.Label, c.Property).Scan(&dupes)
	if err != nil {
		return fmt.Errorf("failed to check duplicates for %s: %w", c.Name(), err)
	}
	if dupes > 0 {
		return &domain.ConstraintViolationError{Label: c.Label, Property: c.Property, Rule: c.Rule}
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO unique_values (label, property, value, node_id)
		SELECT l.label, p.name, p.value, p.node_id FROM node_properties p
		JOIN node_labels l ON l.node_id = p.node_id AND l.label = ?
		WHERE p.name = ?
		ON CONFLICT (label, property, value) DO NOTHING
	`), c.Label, c.Property); err != nil {
		return fmt.Errorf("failed to backfill %s: %w", c.Name(), err)
	}
	return nil
}

func (s *Store) checkExistingNotNull(ctx context.Context, tx *sql.Tx, c domain.Constraint) error {
	var missing int
	err := tx.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT COUNT(*) FROM node_labels l
		WHERE l.label = ? AND NOT EXISTS (
			SELECT 1 FROM node_properties p WHERE p.node_id = l.node_id AND p.name = ?
		)
	`), c.Label, c.Property).Scan(&missing)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", c.Name(), err)
	}
	if missing > 0 {
		return &domain.ConstraintViolationError{Label: c.Label, Property: c.Property, Rule: c.Rule}
	}
	return nil
}

func (s *Store) loadConstraints(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT label, property, rule FROM constraints ORDER BY created_at, label, property`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Constraint
		var rule string
		if err := rows.Scan(&c.Label, &c.Property, &rule); err != nil {
			return err
		}
		c.Rule = domain.Rule(rule)
		s.addConstraint(c)
	}
	return rows.Err()
}

func (s *Store) hasConstraint(c domain.Constraint) bool {
	for _, existing := range s.constraintsFor(c.Label) {
		if existing == c {
			return true
		}
	}
	return false
}

func (s *Store) addConstraint(c domain.Constraint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rules[c.Label] {
		if existing == c {
			return
		}
	}
	s.rules[c.Label] = append(s.rules[c.Label], c)
}

func (s *Store) constraintsFor(label string) []domain.Constraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules[label]
}
