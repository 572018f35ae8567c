package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	"filesearch/pkg/types"
)

// sqliteStore implements Store on top of database/sql, selecting the
// driver compiled in by build_cgo.go / build_purego.go.
type sqliteStore struct {
	db   *sql.DB
	path string
}

// Open creates path if missing and runs pending migrations atomically.
func Open(path string) (Store, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreInit, err)
	}

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, path: path}, nil
}

// openDatabase opens a SQLite database with WAL journaling and a
// single-writer connection pool.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// UpsertBatch inserts or replaces records by Path, transactionally,
// all-or-nothing.
func (s *sqliteStore) UpsertBatch(ctx context.Context, records []*types.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin upsert batch: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (path, name, parent_path, extension, size_bytes, modified_at, file_type, content_digest, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			parent_path = excluded.parent_path,
			extension = excluded.extension,
			size_bytes = excluded.size_bytes,
			modified_at = excluded.modified_at,
			file_type = excluded.file_type,
			content_digest = excluded.content_digest,
			indexed_at = excluded.indexed_at
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare upsert: %v", types.ErrStoreIO, err)
	}
	defer stmt.Close()

	tokenStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO content_tokens (path, tokens) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare token insert: %v", types.ErrStoreIO, err)
	}
	defer tokenStmt.Close()

	now := time.Now()
	for _, rec := range records {
		indexedAt := rec.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			rec.Path, rec.Name, rec.ParentPath, rec.Extension, rec.SizeBytes,
			rec.Modified, string(rec.FileType), rec.ContentDigest, indexedAt,
		); err != nil {
			return fmt.Errorf("%w: upsert %s: %v", types.ErrStoreIO, rec.Path, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM content_tokens WHERE path = ?", rec.Path); err != nil {
			return fmt.Errorf("%w: clear tokens for %s: %v", types.ErrStoreIO, rec.Path, err)
		}
		if rec.HasContent() {
			if _, err := tokenStmt.ExecContext(ctx, rec.Path, strings.Join(rec.ContentTokens, " ")); err != nil {
				return fmt.Errorf("%w: insert tokens for %s: %v", types.ErrStoreIO, rec.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit upsert batch: %v", types.ErrStoreIO, err)
	}
	return nil
}

// DeletePrefix removes pathPrefix and every descendant, transactionally.
func (s *sqliteStore) DeletePrefix(ctx context.Context, pathPrefix string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin delete prefix: %v", types.ErrStoreIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM files WHERE path = ? OR path LIKE ? ESCAPE '\\'",
		pathPrefix, escapeLike(pathPrefix)+string(pathSeparator)+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("%w: delete prefix %s: %v", types.ErrStoreIO, pathPrefix, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStoreIO, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit delete prefix: %v", types.ErrStoreIO, err)
	}
	return n, nil
}

func (s *sqliteStore) Get(ctx context.Context, path string) (*types.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT files.path, files.name, files.parent_path, files.extension, files.size_bytes,
		       files.modified_at, files.file_type, files.content_digest, files.access_count,
		       files.indexed_at, content_tokens.tokens
		FROM files LEFT JOIN content_tokens ON content_tokens.path = files.path
		WHERE files.path = ?
	`, path)

	rec, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", types.ErrStoreIO, path, err)
	}
	return rec, nil
}

// QueryCandidates returns a finite, single-consumption sequence of records
// matching hint, narrowest-indexable-constraint first.
func (s *sqliteStore) QueryCandidates(ctx context.Context, hint PredicateHint) iter.Seq2[*types.FileRecord, error] {
	return func(yield func(*types.FileRecord, error) bool) {
		query, args := buildCandidateQuery(hint)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("%w: query candidates: %v", types.ErrStoreIO, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanFileRecordRows(rows)
			if err != nil {
				yield(nil, fmt.Errorf("%w: scan candidate: %v", types.ErrStoreIO, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("%w: %v", types.ErrStoreIO, err))
		}
	}
}

func buildCandidateQuery(hint PredicateHint) (string, []any) {
	const base = `SELECT files.path, files.name, files.parent_path, files.extension, files.size_bytes,
	       files.modified_at, files.file_type, files.content_digest, files.access_count,
	       files.indexed_at, content_tokens.tokens
	FROM files LEFT JOIN content_tokens ON content_tokens.path = files.path`

	var conds []string
	var args []any

	if n := len(hint.Extensions); n > 0 {
		placeholders := make([]string, n)
		for i, ext := range hint.Extensions {
			placeholders[i] = "?"
			args = append(args, ext)
		}
		conds = append(conds, "files.extension IN ("+strings.Join(placeholders, ",")+")")
	}
	if hint.ParentPrefix != "" {
		conds = append(conds, "(files.parent_path = ? OR files.parent_path LIKE ? ESCAPE '\\')")
		args = append(args, hint.ParentPrefix, escapeLike(hint.ParentPrefix)+string(pathSeparator)+"%")
	}
	if hint.NameContains != "" {
		conds = append(conds, "files.name LIKE ? ESCAPE '\\' COLLATE NOCASE")
		args = append(args, "%"+escapeLike(hint.NameContains)+"%")
	}

	query := base
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if hint.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", hint.Limit)
	}
	return query, args
}

// IncrementAccessCount bumps AccessCount for path. Best-effort: a failure
// here must never fail or slow down the search that triggered it.
func (s *sqliteStore) IncrementAccessCount(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE files SET access_count = access_count + 1 WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("%w: increment access count for %s: %v", types.ErrStoreIO, path, err)
	}
	return nil
}

func (s *sqliteStore) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("%w: vacuum: %v", types.ErrStoreIO, err)
	}
	return nil
}

func (s *sqliteStore) Stats(ctx context.Context) (StoreStats, error) {
	var stats StoreStats
	stats.SchemaVersion = CurrentSchemaVersion

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&stats.RecordCount); err != nil {
		return StoreStats{}, fmt.Errorf("%w: count: %v", types.ErrStoreIO, err)
	}

	var lastUpdated sql.NullTime
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(indexed_at) FROM files").Scan(&lastUpdated); err != nil {
		return StoreStats{}, fmt.Errorf("%w: last updated: %v", types.ErrStoreIO, err)
	}
	if lastUpdated.Valid {
		stats.LastUpdated = lastUpdated.Time
	}

	if s.path != ":memory:" {
		var pageCount, pageSize int64
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
			if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
				stats.SizeBytes = pageCount * pageSize
			}
		}
	}

	return stats, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for a shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row *sql.Row) (*types.FileRecord, error) {
	return scanInto(row)
}

func scanFileRecordRows(rows *sql.Rows) (*types.FileRecord, error) {
	return scanInto(rows)
}

func scanInto(s rowScanner) (*types.FileRecord, error) {
	var rec types.FileRecord
	var fileType string
	var modifiedAt sql.NullTime
	var indexedAt sql.NullTime
	var tokens sql.NullString

	if err := s.Scan(
		&rec.Path, &rec.Name, &rec.ParentPath, &rec.Extension, &rec.SizeBytes,
		&modifiedAt, &fileType, &rec.ContentDigest, &rec.AccessCount, &indexedAt, &tokens,
	); err != nil {
		return nil, err
	}

	rec.FileType = types.FileType(fileType)
	if modifiedAt.Valid {
		rec.Modified = modifiedAt.Time
	}
	if indexedAt.Valid {
		rec.IndexedAt = indexedAt.Time
	}
	if tokens.Valid && tokens.String != "" {
		rec.ContentTokens = strings.Fields(tokens.String)
	}
	return &rec, nil
}

const pathSeparator = '/'

// escapeLike escapes LIKE metacharacters in s so it can be used safely as a
// literal prefix in a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}
