package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) GetCacheRecord(ctx context.Context, key string) (CacheRecord, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT cache_key, profile_id, quick_json, deep_json, quick_expires_at, updated_at
		 FROM cache_records
		 WHERE cache_key = ?`,
		key,
	)
	var ret CacheRecord
	var quick sql.NullString
	var deep sql.NullString
	var quickExpires sql.NullTime
	if err := row.Scan(&ret.Key, &ret.ProfileID, &quick, &deep, &quickExpires, &ret.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return CacheRecord{}, false, nil
		}
		return CacheRecord{}, false, err
	}
	if quick.Valid {
		ret.Quick = []byte(quick.String)
	}
	if deep.Valid {
		ret.Deep = []byte(deep.String)
	}
	if quickExpires.Valid {
		ret.QuickExpiresAt = quickExpires.Time
	}
	return ret, true, nil
}

func (s *SQLiteStore) PutQuick(ctx context.Context, key string, profileID string, payload []byte, expiresAt time.Time, updatedAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cache_records (cache_key, profile_id, quick_json, quick_expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			profile_id=excluded.profile_id,
			quick_json=excluded.quick_json,
			quick_expires_at=excluded.quick_expires_at,
			updated_at=excluded.updated_at`,
		key,
		profileID,
		string(payload),
		expiresAt.UTC(),
		updatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) PutDeep(ctx context.Context, key string, profileID string, payload []byte, updatedAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cache_records (cache_key, profile_id, deep_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			profile_id=excluded.profile_id,
			deep_json=excluded.deep_json,
			updated_at=excluded.updated_at`,
		key,
		profileID,
		string(payload),
		updatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) CountCacheRecords(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_records`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteOldestCacheRecords removes the n least-recently-updated records,
// ordered strictly by updated_at ascending.
func (s *SQLiteStore) DeleteOldestCacheRecords(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM cache_records
		 WHERE cache_key IN (
			SELECT cache_key FROM cache_records
			ORDER BY updated_at ASC, cache_key ASC
			LIMIT ?
		 )`,
		n,
	)
	return err
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]ProfileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, payload_json, created_at, updated_at
		 FROM profiles
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]ProfileRecord, 0)
	for rows.Next() {
		var item ProfileRecord
		var payload string
		if err := rows.Scan(&item.ID, &payload, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.Payload = []byte(payload)
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, record ProfileRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO profiles (id, payload_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			payload_json=excluded.payload_json,
			updated_at=excluded.updated_at`,
		record.ID,
		string(record.Payload),
		record.CreatedAt.UTC(),
		record.UpdatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListHistory(ctx context.Context) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, payload_json, created_at
		 FROM history_entries
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]HistoryRecord, 0)
	for rows.Next() {
		var item HistoryRecord
		var payload string
		if err := rows.Scan(&item.ID, &payload, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Payload = []byte(payload)
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) UpsertHistory(ctx context.Context, record HistoryRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO history_entries (id, payload_json, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			payload_json=excluded.payload_json,
			created_at=excluded.created_at`,
		record.ID,
		string(record.Payload),
		record.CreatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) DeleteHistory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history_entries WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history_entries`)
	return err
}

// TrimHistory keeps only the limit newest entries.
func (s *SQLiteStore) TrimHistory(ctx context.Context, limit int) error {
	if limit <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM history_entries
		 WHERE id NOT IN (
			SELECT id FROM history_entries
			ORDER BY created_at DESC
			LIMIT ?
		 )`,
		limit,
	)
	return err
}

func (s *SQLiteStore) UpsertKnowledgeDocument(ctx context.Context, doc KnowledgeDocument) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO knowledge_documents (collection, id, doc_text, metadata_json, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET
			doc_text=excluded.doc_text,
			metadata_json=excluded.metadata_json`,
		doc.Collection,
		doc.ID,
		doc.Text,
		string(doc.Metadata),
		doc.CreatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) ListKnowledgeDocuments(ctx context.Context, collection string) ([]KnowledgeDocument, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT collection, id, doc_text, metadata_json, created_at
		 FROM knowledge_documents
		 WHERE collection = ?
		 ORDER BY created_at ASC, id ASC`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]KnowledgeDocument, 0)
	for rows.Next() {
		var item KnowledgeDocument
		var metadata sql.NullString
		if err := rows.Scan(&item.Collection, &item.ID, &item.Text, &metadata, &item.CreatedAt); err != nil {
			return nil, err
		}
		if metadata.Valid {
			item.Metadata = []byte(metadata.String)
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload_json FROM settings WHERE id = 1`)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, payload []byte) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO settings (id, payload_json, updated_at)
		 VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			payload_json=excluded.payload_json,
			updated_at=excluded.updated_at`,
		string(payload),
		time.Now().UTC(),
	)
	return err
}
