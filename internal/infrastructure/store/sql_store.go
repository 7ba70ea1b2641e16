package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name       string
	Driver     string
	DocType    string
	LockSuffix string
	dollar     bool
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "postgres", DocType: "JSONB", LockSuffix: " FOR UPDATE", dollar: true}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", DocType: "TEXT"}
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps documents in a single documents table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the documents table if needed.
func (s *SQLStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data %s NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (collection, id)
	)`, s.dialect.DocType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT data FROM documents WHERE collection = ? AND id = ?`),
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return []byte(data), nil
}

func (s *SQLStore) Create(ctx context.Context, collection, id string, doc []byte) error {
	res, err := s.db.ExecContext(ctx,
		s.dialect.Rebind(`INSERT INTO documents (collection, id, data, version, updated_at)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT (collection, id) DO NOTHING`),
		collection, id, string(doc), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, collection, id string, doc []byte) error {
	_, err := s.db.ExecContext(ctx,
		s.dialect.Rebind(`INSERT INTO documents (collection, id, data, version, updated_at)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT (collection, id) DO UPDATE
		 SET data = excluded.data, version = documents.version + 1, updated_at = excluded.updated_at`),
		collection, id, string(doc), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		s.dialect.Rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`),
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, collection string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.Rebind(`SELECT data FROM documents WHERE collection = ?`),
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, []byte(data))
	}
	return docs, rows.Err()
}

// Update locks the row for the duration of fn.
func (s *SQLStore) Update(ctx context.Context, collection, id string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s/%s: %w", collection, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var data string
	err = tx.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT data FROM documents WHERE collection = ? AND id = ?`+s.dialect.LockSuffix),
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock %s/%s: %w", collection, id, err)
	}

	next, err := fn([]byte(data))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		s.dialect.Rebind(`UPDATE documents SET data = ?, version = version + 1, updated_at = ?
		 WHERE collection = ? AND id = ?`),
		string(next), time.Now().UTC(), collection, id,
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open(Postgres.Driver, connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// ConnectSQLite opens a SQLite database file. A single connection serializes
// writers, which is what makes Update atomic without row locks.
func ConnectSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(SQLite.Driver, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}
