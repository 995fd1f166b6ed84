package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	sqlitedriver "modernc.org/sqlite"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// foldCaseFunc is the SQL name of domain.FoldCase.
const foldCaseFunc = "fold_case"

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions makes domain.FoldCase callable from SQL on every
// connection opened afterwards.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlitedriver.RegisterDeterministicScalarFunction(foldCaseFunc, 1,
			func(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case string:
					return domain.FoldCase(v), nil
				case []byte:
					return domain.FoldCase(string(v)), nil
				case nil:
					return nil, nil
				default:
					return nil, fmt.Errorf("%s: unsupported argument %T", foldCaseFunc, v)
				}
			})
	})
	return registerErr
}

// Store is a SQLite-based chunk store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-rag/data/chunks.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-rag", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "chunks.db")

	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("registering functions: %w", err)
	}

	// WAL mode for concurrent readers; foreign keys on every pooled connection
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(content); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, name, doc_type, source, status, chunk_count, error, created_at, updated_at`

// SaveDocument stores or updates a document record.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			doc_type = excluded.doc_type,
			source = excluded.source,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Name, string(doc.Type), doc.Source, string(doc.Status),
		doc.ChunkCount, doc.Error, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// UpdateStatus sets the status and failure reason of a document.
func (s *documentStore) UpdateStatus(
	ctx context.Context, id string, status domain.DocumentStatus, reason string,
) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, string(status), reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return requireAffected(res)
}

// ReplaceChunks swaps the chunks of a document and marks it completed in a
// single transaction.
func (s *documentStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = ?, chunk_count = ?, error = '', updated_at = ? WHERE id = ?
	`, string(domain.StatusCompleted), len(chunks), time.Now().UTC(), documentID)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if err := deleteChunks(ctx, tx, documentID); err != nil {
		return err
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, position, content, metadata)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer chunkStmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks_fts (content, chunk_id, document_id) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer ftsStmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		if _, err := chunkStmt.ExecContext(ctx, chunk.ID, documentID, chunk.Position,
			chunk.Content, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
		if _, err := ftsStmt.ExecContext(ctx, chunk.Content, chunk.ID, documentID); err != nil {
			return fmt.Errorf("indexing chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// MissingDocuments returns the IDs in ids that have no document record,
// in input order.
func (s *documentStore) MissingDocuments(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.store.db.QueryContext(ctx, `SELECT id FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// DeleteDocument removes a document together with its chunks and index rows.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteChunks(ctx, tx, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document in sequence order.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, position, content, metadata
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var chunk domain.Chunk
		var metadataJSON string
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position, &chunk.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := unmarshalMetadata(metadataJSON, &chunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// SearchChunks ranks chunks in the given documents. Chunks containing the
// whole query as a phrase come first, then FTS5 term matches by bm25.
func (s *documentStore) SearchChunks(
	ctx context.Context, query string, documentIDs []string, limit int,
) ([]domain.ChunkHit, error) {
	phrase := domain.NormaliseQuery(query)
	if phrase == "" || limit <= 0 || len(documentIDs) == 0 {
		return []domain.ChunkHit{}, nil
	}

	placeholders, docArgs := inClause(documentIDs)
	args := []any{phrase}

	ftsJoin := ""
	match := "0"
	if expr := matchExpression(domain.QueryTerms(query)); expr != "" {
		ftsJoin = `LEFT JOIN (
			SELECT chunk_id, bm25(chunks_fts) AS score FROM chunks_fts WHERE chunks_fts MATCH ?
		) f ON f.chunk_id = c.id`
		match = "f.chunk_id IS NOT NULL"
		args = append(args, expr)
	}
	args = append(args, docArgs...)
	args = append(args, limit)

	order := "exact DESC, c.document_id, c.position"
	if ftsJoin != "" {
		order = "exact DESC, f.score IS NULL, f.score, c.document_id, c.position"
	}

	//nolint:gosec // only placeholders and fixed fragments are interpolated
	sqlQuery := `
		SELECT c.id, c.document_id, c.position, c.content, c.metadata, d.name, exact
		FROM (
			SELECT chunks.*, instr(` + foldCaseFunc + `(chunks.content), ?) > 0 AS exact FROM chunks
		) c
		JOIN documents d ON d.id = c.document_id
		` + ftsJoin + `
		WHERE c.document_id IN (` + placeholders + `) AND (c.exact OR ` + match + `)
		ORDER BY ` + order + `
		LIMIT ?`

	rows, err := s.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	return scanHits(rows, true)
}

// FirstChunks returns up to limit chunks ordered by document ID then position.
func (s *documentStore) FirstChunks(
	ctx context.Context, documentIDs []string, limit int,
) ([]domain.ChunkHit, error) {
	if limit <= 0 || len(documentIDs) == 0 {
		return []domain.ChunkHit{}, nil
	}
	placeholders, args := inClause(documentIDs)
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.position, c.content, c.metadata, d.name
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.document_id IN (`+placeholders+`)
		ORDER BY c.document_id, c.position
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying first chunks: %w", err)
	}
	defer rows.Close()

	return scanHits(rows, false)
}

// Stats summarises stored documents and chunks.
func (s *documentStore) Stats(ctx context.Context) (*domain.DocumentStats, error) {
	stats := &domain.DocumentStats{
		StatusBreakdown: map[domain.DocumentStatus]int{
			domain.StatusPending:    0,
			domain.StatusProcessing: 0,
			domain.StatusCompleted:  0,
			domain.StatusFailed:     0,
		},
	}

	rows, err := s.store.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		stats.StatusBreakdown[domain.DocumentStatus(status)] = n
		stats.TotalDocuments += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	row := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`)
	if err := row.Scan(&stats.TotalChunks); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	return stats, nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, status string
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(&doc.ID, &doc.Name, &docType, &doc.Source, &status,
		&doc.ChunkCount, &doc.Error, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.DocumentStatus(status)
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}
	return &doc, nil
}

// scanHits reads ranked chunk rows. withExact selects the trailing exact
// column that SearchChunks adds.
func scanHits(rows *sql.Rows, withExact bool) ([]domain.ChunkHit, error) {
	hits := []domain.ChunkHit{}
	for rows.Next() {
		var hit domain.ChunkHit
		var metadataJSON string
		dest := []any{&hit.Chunk.ID, &hit.Chunk.DocumentID, &hit.Chunk.Position,
			&hit.Chunk.Content, &metadataJSON, &hit.DocumentName}
		if withExact {
			dest = append(dest, &hit.Exact)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := unmarshalMetadata(metadataJSON, &hit.Chunk); err != nil {
			return nil, err
		}
		hit.Rank = len(hits)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return hits, nil
}

func unmarshalMetadata(metadataJSON string, chunk *domain.Chunk) error {
	if metadataJSON == "" || metadataJSON == jsonNull {
		return nil
	}
	if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
		return fmt.Errorf("unmarshaling chunk metadata: %w", err)
	}
	return nil
}

// deleteChunks removes the chunks and index rows of a document.
func deleteChunks(ctx context.Context, tx *sql.Tx, documentID string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunk index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// inClause returns "?, ?, ?" and the matching args for an IN list.
func inClause(values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "), args
}

// matchExpression builds an FTS5 query matching any of the terms. Each term
// is quoted so FTS5 operators in user input are treated as text.
func matchExpression(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}
