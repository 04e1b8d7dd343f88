package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/verdict"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the SQL driver: "sqlite3" (mattn, cgo) or
	// "sqlite" (modernc, pure Go).
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/precedents.db",
		Driver:       "sqlite3",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend, initializing the
// schema and enabling WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite3"
	}
	if config.Driver != "sqlite3" && config.Driver != "sqlite" {
		return nil, precedent.NewStorageError("sqlite", "open",
			fmt.Errorf("unknown driver %q", config.Driver))
	}

	logger := slog.Default().With("component", "precedent.storage.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, precedent.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite precedent storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and pragmas.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return precedent.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return precedent.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return precedent.NewStorageError("sqlite", "enable_foreign_keys", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return precedent.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return precedent.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return precedent.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return precedent.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists a finalized decision. The dedup check-then-insert runs in a
// single transaction so concurrent identical requests resolve to one row.
func (s *SQLiteStorage) Store(ctx context.Context, req *StoreRequest) (string, error) {
	if req == nil {
		return "", precedent.NewStorageError("sqlite", "store", errors.New("nil store request"))
	}

	hash := precedent.CanonicalHash(req.InputText, req.Context)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", precedent.NewStorageError("sqlite", "begin", err)
	}
	defer tx.Rollback()

	// Dedup: identical (input, context) resolves to the existing row.
	var existing string
	err = tx.QueryRowContext(ctx, "SELECT id FROM precedents WHERE context_hash = ?", hash).Scan(&existing)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return "", precedent.NewStorageError("sqlite", "commit", err)
		}
		s.logger.Debug("dedup hit", "precedent_id", existing)
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", precedent.NewStorageError("sqlite", "dedup_lookup", err)
	}

	id := uuid.NewString()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	contextJSON, _ := json.Marshal(req.Context)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO precedents (id, request_id, input_text, context_hash, context_json, verdict, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.RequestID, req.InputText, hash, string(contextJSON), string(req.Verdict), req.Confidence, ts,
	)
	if err != nil {
		return "", precedent.NewStorageError("sqlite", "store", err)
	}

	for _, out := range req.CriticOutputs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO critic_outputs (precedent_id, critic_name, verdict, confidence, justification, applied_weight)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, out.CriticName, string(out.Verdict), out.Confidence, out.Justification, out.AppliedWeight,
		)
		if err != nil {
			return "", precedent.NewStorageError("sqlite", "store_critic_output", err)
		}
	}

	if len(req.Embedding) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO embeddings (precedent_id, model, vector) VALUES (?, ?, ?)`,
			id, req.EmbeddingModel, encodeVector(req.Embedding),
		)
		if err != nil {
			return "", precedent.NewStorageError("sqlite", "store_embedding", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", precedent.NewStorageError("sqlite", "commit", err)
	}

	return id, nil
}

// Get returns the precedent with the given id, including its references.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*precedent.Precedent, error) {
	return s.getWhere(ctx, "id = ?", id)
}

// GetByHash returns the precedent with the given canonical hash.
func (s *SQLiteStorage) GetByHash(ctx context.Context, contextHash string) (*precedent.Precedent, error) {
	return s.getWhere(ctx, "context_hash = ?", contextHash)
}

func (s *SQLiteStorage) getWhere(ctx context.Context, where string, arg any) (*precedent.Precedent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.request_id, p.input_text, p.context_hash, p.context_json, p.verdict, p.confidence, p.created_at,
		       e.model, e.vector
		FROM precedents p
		LEFT JOIN embeddings e ON e.precedent_id = p.id
		WHERE p.`+where, arg)

	p, err := scanPrecedent(row)
	if err == sql.ErrNoRows {
		return nil, precedent.ErrNotFound
	}
	if err != nil {
		return nil, precedent.NewStorageError("sqlite", "get", err)
	}

	refs, err := s.references(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.References = refs

	outputs, err := s.criticOutputs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.CriticOutputs = outputs

	return p, nil
}

// criticOutputs loads the per-critic reports stored with a precedent.
func (s *SQLiteStorage) criticOutputs(ctx context.Context, id string) ([]precedent.CriticOutput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT precedent_id, critic_name, verdict, confidence, COALESCE(justification, ''), COALESCE(applied_weight, 0)
		FROM critic_outputs WHERE precedent_id = ? ORDER BY critic_name`, id)
	if err != nil {
		return nil, precedent.NewStorageError("sqlite", "critic_outputs", err)
	}
	defer rows.Close()

	var outputs []precedent.CriticOutput
	for rows.Next() {
		var o precedent.CriticOutput
		var v string
		if err := rows.Scan(&o.PrecedentID, &o.CriticName, &v, &o.Confidence, &o.Justification, &o.AppliedWeight); err != nil {
			return nil, precedent.NewStorageError("sqlite", "scan_critic_output", err)
		}
		o.Verdict = verdict.Verdict(v)
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, precedent.NewStorageError("sqlite", "critic_outputs", err)
	}
	return outputs, nil
}

// references loads the outgoing similarity edges of a precedent.
func (s *SQLiteStorage) references(ctx context.Context, id string) ([]precedent.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT referenced_id, similarity, COALESCE(ref_type, '')
		FROM precedent_refs WHERE source_id = ? ORDER BY similarity DESC`, id)
	if err != nil {
		return nil, precedent.NewStorageError("sqlite", "references", err)
	}
	defer rows.Close()

	var refs []precedent.Reference
	for rows.Next() {
		var r precedent.Reference
		if err := rows.Scan(&r.ReferencedID, &r.Similarity, &r.Type); err != nil {
			return nil, precedent.NewStorageError("sqlite", "scan_reference", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, precedent.NewStorageError("sqlite", "references", err)
	}
	return refs, nil
}

// Query returns precedents matching the filters, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *precedent.Query) ([]*precedent.Precedent, error) {
	if q == nil {
		q = &precedent.Query{}
	}

	where, args := buildWhereClause(q)
	sqlQuery := `
		SELECT p.id, p.request_id, p.input_text, p.context_hash, p.context_json, p.verdict, p.confidence, p.created_at,
		       e.model, e.vector
		FROM precedents p
		LEFT JOIN embeddings e ON e.precedent_id = p.id`
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += " ORDER BY p.created_at DESC"

	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, precedent.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	results := []*precedent.Precedent{}
	for rows.Next() {
		p, err := scanPrecedent(rows)
		if err != nil {
			return nil, precedent.NewStorageError("sqlite", "scan", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, precedent.NewStorageError("sqlite", "query", err)
	}

	return results, nil
}

// Count returns the number of precedents matching the filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *precedent.Query) (int64, error) {
	if q == nil {
		q = &precedent.Query{}
	}

	where, args := buildWhereClause(q)
	sqlQuery := "SELECT COUNT(*) FROM precedents p"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, precedent.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// AddReference records a weighted similarity edge. Re-adding an existing edge
// updates its score. Either endpoint missing yields precedent.ErrNotFound.
func (s *SQLiteStorage) AddReference(ctx context.Context, id, referencedID string, similarity float64, refType string) error {
	for _, pid := range []string{id, referencedID} {
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM precedents WHERE id = ?)", pid).Scan(&exists)
		if err != nil {
			return precedent.NewStorageError("sqlite", "reference", err)
		}
		if exists == 0 {
			return precedent.ErrNotFound
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO precedent_refs (source_id, referenced_id, similarity, ref_type, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, referenced_id) DO UPDATE SET similarity = excluded.similarity, ref_type = excluded.ref_type`,
		id, referencedID, similarity, refType, time.Now().UTC(),
	)
	if err != nil {
		return precedent.NewStorageError("sqlite", "reference", err)
	}
	return nil
}

// Delete removes a precedent and its dependent rows.
func (s *SQLiteStorage) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM precedents WHERE id = ?", id)
	if err != nil {
		return false, precedent.NewStorageError("sqlite", "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, precedent.NewStorageError("sqlite", "delete", err)
	}
	return n > 0, nil
}

// DeleteBefore removes precedents older than the cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM precedents WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, precedent.NewStorageError("sqlite", "delete_before", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, precedent.NewStorageError("sqlite", "delete_before", err)
	}
	return n, nil
}

// ListEmbeddings returns all stored embeddings for index building.
func (s *SQLiteStorage) ListEmbeddings(ctx context.Context) ([]EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT precedent_id, model, vector FROM embeddings")
	if err != nil {
		return nil, precedent.NewStorageError("sqlite", "list_embeddings", err)
	}
	defer rows.Close()

	var records []EmbeddingRecord
	for rows.Next() {
		var rec EmbeddingRecord
		var blob []byte
		if err := rows.Scan(&rec.PrecedentID, &rec.Model, &blob); err != nil {
			return nil, precedent.NewStorageError("sqlite", "scan_embedding", err)
		}
		rec.Vector = decodeVector(blob)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, precedent.NewStorageError("sqlite", "list_embeddings", err)
	}
	return records, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return precedent.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite precedent storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
func buildWhereClause(q *precedent.Query) (string, []any) {
	var conditions []string
	var args []any

	if q.Verdict != "" {
		conditions = append(conditions, "p.verdict = ?")
		args = append(args, string(q.Verdict))
	}
	if q.MinConfidence > 0 {
		conditions = append(conditions, "p.confidence >= ?")
		args = append(args, q.MinConfidence)
	}
	if !q.Since.IsZero() {
		conditions = append(conditions, "p.created_at >= ?")
		args = append(args, q.Since)
	}
	if !q.Until.IsZero() {
		conditions = append(conditions, "p.created_at <= ?")
		args = append(args, q.Until)
	}

	where := ""
	for i, c := range conditions {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	return where, args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPrecedent scans a joined precedent+embedding row.
func scanPrecedent(row rowScanner) (*precedent.Precedent, error) {
	var p precedent.Precedent
	var contextJSON sql.NullString
	var model sql.NullString
	var vector []byte
	var v string

	err := row.Scan(
		&p.ID, &p.RequestID, &p.InputText, &p.ContextHash, &contextJSON,
		&v, &p.Confidence, &p.Timestamp,
		&model, &vector,
	)
	if err != nil {
		return nil, err
	}

	p.Verdict = verdict.Verdict(v)
	if contextJSON.Valid && contextJSON.String != "" {
		json.Unmarshal([]byte(contextJSON.String), &p.Context)
	}
	if model.Valid {
		p.EmbeddingModel = model.String
	}
	if len(vector) > 0 {
		p.Embedding = decodeVector(vector)
	}

	return &p, nil
}
