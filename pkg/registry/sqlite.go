package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// StyleRecord is the wire shape of one configuration record: which style id
// maps to which upstream definition. This is the only coupling to the
// persistence layer; the proxy never writes business data through it.
type StyleRecord struct {
	ID            string
	UpstreamURL   string
	Provider      string
	TileTemplates map[string]string
	UpdatedAt     time.Time
}

// RecordStore is the configuration-record lookup interface consumed by the
// registry. Implementations return a NotFoundError for unknown ids.
type RecordStore interface {
	// GetByID returns the record for a style id.
	GetByID(ctx context.Context, id string) (*StyleRecord, error)

	// List returns all records.
	List(ctx context.Context) ([]*StyleRecord, error)

	// Close releases the underlying store.
	Close() error
}

// SQLiteStore implements RecordStore backed by a SQLite database.
// It opens the database in WAL mode with a busy timeout; tile templates are
// stored JSON-encoded in a single column.
type SQLiteStore struct {
	db *sql.DB

	getStmt  *sql.Stmt
	listStmt *sql.Stmt
	putStmt  *sql.Stmt
}

// OpenSQLiteStore opens (and if needed initializes) a SQLite record store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS styles (
		id TEXT PRIMARY KEY,
		upstream_url TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT 'none',
		tile_templates TEXT NOT NULL DEFAULT '{}',
		updated_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT id, upstream_url, provider, tile_templates, updated_at
		FROM styles WHERE id = ?`)
	if err != nil {
		return err
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, upstream_url, provider, tile_templates, updated_at
		FROM styles ORDER BY id`)
	if err != nil {
		return err
	}

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO styles (id, upstream_url, provider, tile_templates, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			upstream_url = excluded.upstream_url,
			provider = excluded.provider,
			tile_templates = excluded.tile_templates,
			updated_at = excluded.updated_at`)
	return err
}

// GetByID returns the record for a style id, or a NotFoundError.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*StyleRecord, error) {
	row := s.getStmt.QueryRowContext(ctx, id)
	record, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{StyleID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load style record %q: %w", id, err)
	}
	return record, nil
}

// List returns all style records ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]*StyleRecord, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list style records: %w", err)
	}
	defer rows.Close()

	var records []*StyleRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan style record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Put inserts or updates a record. Used by import tooling and tests; the
// live proxy only reads.
func (s *SQLiteStore) Put(ctx context.Context, record *StyleRecord) error {
	templates, err := json.Marshal(record.TileTemplates)
	if err != nil {
		return fmt.Errorf("failed to encode tile templates: %w", err)
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.putStmt.ExecContext(ctx,
		record.ID, record.UpstreamURL, record.Provider, string(templates), updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store style record %q: %w", record.ID, err)
	}
	return nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.listStmt, s.putStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

func scanRecord(scan func(dest ...any) error) (*StyleRecord, error) {
	var (
		record       StyleRecord
		templatesRaw string
		updatedAt    int64
	)
	if err := scan(&record.ID, &record.UpstreamURL, &record.Provider, &templatesRaw, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(templatesRaw), &record.TileTemplates); err != nil {
		return nil, fmt.Errorf("corrupt tile_templates for %q: %w", record.ID, err)
	}
	record.UpdatedAt = time.Unix(updatedAt, 0)
	return &record, nil
}

// MergeFromStore loads all records from a RecordStore and registers them,
// overriding file and inline definitions with the same id.
func (r *Registry) MergeFromStore(ctx context.Context, store RecordStore) error {
	records, err := store.List(ctx)
	if err != nil {
		return err
	}

	for _, record := range records {
		provider := Provider(record.Provider)
		if provider == "" {
			provider = ProviderNone
		}
		desc := &StyleDescriptor{
			ID:            record.ID,
			UpstreamURL:   record.UpstreamURL,
			Provider:      provider,
			TileTemplates: record.TileTemplates,
		}
		if err := r.Register(desc); err != nil {
			return err
		}
	}
	return nil
}
