// Package db is the persistence layer of the scan store. A Store wraps one
// database (a local sqlite file by default); every read and write runs inside a
// transaction, either one per repository call or one shared by a Session.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/automaton-store/internal/config"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// runner gives repositories a transaction to work in. The Store opens a new one
// per call, a Session hands out its own.
type runner interface {
	run(ctx context.Context, fn func(t *txn) error) error
}

// txn is a transaction with the dialect applied to queries and errors.
type txn struct {
	q querier
	d *dialect
}

func (t *txn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.q.ExecContext(ctx, t.d.rebind(query), args...)
	return res, t.d.classify(err)
}

func (t *txn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := t.q.QueryContext(ctx, t.d.rebind(query), args...)
	return rows, t.d.classify(err)
}

func (t *txn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.q.QueryRowContext(ctx, t.d.rebind(query), args...)
}

// insert runs an INSERT and returns the generated id.
func (t *txn) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if t.d.returningID {
		var id int64
		err := t.queryRow(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, t.d.classify(err)
	}
	res, err := t.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Store is the handle on the database. It is safe to share between goroutines,
// but the storage engine serializes writers: sqlite runs a single connection.
type Store struct {
	db    *sql.DB
	d     *dialect
	cfg   config.Database
	log   *logrus.Logger
	mu    sync.Mutex
	ready bool
}

// Open prepares a store for the configured database. Nothing is written until
// the first session: the schema is created lazily.
func Open(cfg config.Database, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if cfg.Driver == config.DriverSQLite {
		dsn = cfg.SQLiteDSN()
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSchemaInit, err)
	}
	if cfg.Driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return &Store{db: db, d: d, cfg: cfg, log: log}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database answers, creating the schema if needed.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.createSchema(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSchemaInit, err)
	}
	s.ready = true
	s.log.WithFields(logrus.Fields{"driver": s.d.name, "path": s.cfg.Path}).Info("database schema ready")
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	if s.d.name == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o700); err != nil {
			return err
		}
	}
	for _, stmt := range s.d.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) run(ctx context.Context, fn func(t *txn) error) (err error) {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.WithError(rbErr).Warn("rollback failed")
			}
			s.log.WithError(err).Debug("transaction rolled back")
			return
		}
		err = s.d.classify(tx.Commit())
	}()
	return fn(&txn{q: tx, d: s.d})
}

// WithSession runs fn in one transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics. The session
// must not be used after fn returns, nor shared between goroutines. Calling the
// Store's own repositories from inside fn opens a second transaction, which a
// sqlite store cannot serve while the first is open: use the session's.
func (s *Store) WithSession(ctx context.Context, fn func(sess *Session) error) error {
	return s.run(ctx, func(t *txn) error {
		sess := &Session{t: t}
		defer sess.close()
		return fn(sess)
	})
}

// Session is a scoped transactional handle obtained through WithSession.
type Session struct {
	mu     sync.Mutex
	t      *txn
	closed bool
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) run(_ context.Context, fn func(t *txn) error) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return storage.ErrSessionClosed
	}
	return fn(s.t)
}

func (s *Store) Scans() *ScanRepository                    { return &ScanRepository{r: s} }
func (s *Store) ScanStatuses() *ScanStatusRepository       { return &ScanStatusRepository{r: s} }
func (s *Store) Assets() *AssetRepository                  { return &AssetRepository{r: s} }
func (s *Store) Vulnerabilities() *VulnerabilityRepository { return &VulnerabilityRepository{r: s} }
func (s *Store) Agents() *AgentRepository                  { return &AgentRepository{r: s} }
func (s *Store) AgentGroups() *AgentGroupRepository        { return &AgentGroupRepository{r: s} }
func (s *Store) AssetTypes() *AssetTypeRepository          { return &AssetTypeRepository{r: s} }
func (s *Store) APIKeys() *APIKeyRepository                { return &APIKeyRepository{r: s} }

func (s *Session) Scans() *ScanRepository                    { return &ScanRepository{r: s} }
func (s *Session) ScanStatuses() *ScanStatusRepository       { return &ScanStatusRepository{r: s} }
func (s *Session) Assets() *AssetRepository                  { return &AssetRepository{r: s} }
func (s *Session) Vulnerabilities() *VulnerabilityRepository { return &VulnerabilityRepository{r: s} }
func (s *Session) Agents() *AgentRepository                  { return &AgentRepository{r: s} }
func (s *Session) AgentGroups() *AgentGroupRepository        { return &AgentGroupRepository{r: s} }
func (s *Session) AssetTypes() *AssetTypeRepository          { return &AssetTypeRepository{r: s} }
func (s *Session) APIKeys() *APIKeyRepository                { return &APIKeyRepository{r: s} }
