// Package sqlite implements object.ObjectStorage backed by SQLite.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/Fwea-Go/remix-exp/pkg/object"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	defaultPageSize  = 1000
	defaultChunkSize = 1 << 20
)

// Config defines how the SQLite storage should be initialized.
type Config struct {
	// Source is the DSN/connection string, e.g. file:objects.db?cache=shared.
	Source string
	// Driver name registered with database/sql: "sqlite" (default) or "libsql"
	// for remote libsql/Turso databases.
	Driver string
	// Table to store objects. Defaults to "objects".
	Table string
	// AllowOverwrite controls whether Put replaces existing records.
	AllowOverwrite bool
	// PageSize caps keys per ListPage call. Defaults to 1000.
	PageSize int
	// ChunkSize is how many bytes Get reads per query. Defaults to 1 MiB.
	ChunkSize int
	// DB lets callers supply an existing *sql.DB connection.
	DB *sql.DB
}

// Storage satisfies object.ObjectStorage using a SQLite table.
type Storage struct {
	db             *sql.DB
	table          string
	allowOverwrite bool
	ownsDB         bool
	pageSize       int
	chunkSize      int
}

// Init configures the storage and ensures the backing table exists.
func (s *Storage) Init(ctx context.Context, param any) error {
	cfg, ok := param.(Config)
	if !ok {
		if p, ok := param.(*Config); ok && p != nil {
			cfg = *p
		} else {
			return fmt.Errorf("sqlite: unexpected config type %T", param)
		}
	}

	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Table == "" {
		cfg.Table = "objects"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Source == "" && cfg.DB == nil {
		return errors.New("sqlite: Source is required")
	}

	table, err := sanitizeName(cfg.Table)
	if err != nil {
		return err
	}
	s.table = table
	s.allowOverwrite = cfg.AllowOverwrite
	s.pageSize = cfg.PageSize
	s.chunkSize = cfg.ChunkSize

	if cfg.DB != nil {
		s.db = cfg.DB
	} else {
		db, err := sql.Open(cfg.Driver, cfg.Source)
		if err != nil {
			return fmt.Errorf("sqlite: open: %w", err)
		}
		s.db = db
		s.ownsDB = true
	}

	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		size INTEGER NOT NULL,
		etag TEXT,
		content_type TEXT,
		cache_control TEXT,
		last_modified TEXT NOT NULL,
		meta TEXT
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}

	return nil
}

// Close releases the DB connection when owned by the storage.
func (s *Storage) Close(_ context.Context) error {
	if s.db != nil && s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Put stores an object; optionally overwrites existing content based on config.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, _ int64, opts object.PutOptions) (object.Object, error) {
	return s.save(ctx, key, r, opts)
}

// MultipartPut streams large uploads; stored atomically for SQLite backend.
func (s *Storage) MultipartPut(ctx context.Context, key string, r io.Reader, _ int64, opts object.PutOptions) (object.Object, error) {
	return s.save(ctx, key, r, opts)
}

// Get retrieves the object metadata and a reader over the data. The body
// is read ChunkSize bytes per query, so neither full nor ranged reads hold
// the whole blob in memory.
func (s *Storage) Get(ctx context.Context, key string, rng *object.Range) (object.Object, io.ReadCloser, error) {
	obj, err := s.Stat(ctx, key)
	if err != nil {
		return object.Object{}, nil, err
	}

	applied, err := object.ResolveRange(rng, obj.Size)
	if err != nil {
		return object.Object{}, nil, err
	}

	obj.Range = applied
	r := &blobReader{ctx: ctx, s: s, key: key, end: obj.Size}
	if applied != nil {
		r.off, r.end = applied.Start, applied.End+1
	}
	return obj, r, nil
}

// blobReader streams [off, end) of a stored blob one chunk per query.
type blobReader struct {
	ctx context.Context
	s   *Storage
	key string
	off int64
	end int64
	buf []byte
}

func (r *blobReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		if r.off >= r.end {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *blobReader) fill() error {
	n := min(int64(r.s.chunkSize), r.end-r.off)
	// substr on a BLOB counts bytes and is 1-based.
	query := fmt.Sprintf(`SELECT substr(data, ?, ?) FROM %s WHERE key = ?`, r.s.table)
	var data []byte
	err := r.s.db.QueryRowContext(r.ctx, query, r.off+1, n, r.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: object %q removed while reading: %w", r.key, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return fmt.Errorf("sqlite: read object: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("sqlite: object %q shrank while reading: %w", r.key, io.ErrUnexpectedEOF)
	}
	r.off += int64(len(data))
	r.buf = data
	return nil
}

func (r *blobReader) Close() error {
	r.buf = nil
	r.off = r.end
	return nil
}

// ListPage returns up to PageSize keys with the given prefix, ordered by
// key. The cursor is the last key of the previous page.
func (s *Storage) ListPage(ctx context.Context, prefix, cursor string) (object.Page, error) {
	if err := s.ensureDB(); err != nil {
		return object.Page{}, err
	}

	// instr keeps the prefix match case-sensitive, unlike LIKE.
	query := fmt.Sprintf(`SELECT key FROM %s WHERE instr(key, ?) = 1 AND key > ? ORDER BY key ASC LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, query, prefix, cursor, s.pageSize+1)
	if err != nil {
		return object.Page{}, fmt.Errorf("sqlite: list objects: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return object.Page{}, fmt.Errorf("sqlite: scan object: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return object.Page{}, fmt.Errorf("sqlite: iterate objects: %w", err)
	}

	page := object.Page{Keys: keys}
	if len(keys) > s.pageSize {
		page.Keys = keys[:s.pageSize]
		page.Cursor = page.Keys[len(page.Keys)-1]
	}
	return page, nil
}

// Stat fetches metadata without streaming the body.
func (s *Storage) Stat(ctx context.Context, key string) (object.Object, error) {
	if err := s.ensureDB(); err != nil {
		return object.Object{}, err
	}

	query := fmt.Sprintf(`SELECT size, etag, content_type, cache_control, last_modified, meta FROM %s WHERE key = ?`, s.table)
	var (
		size         int64
		etag         sql.NullString
		contentType  sql.NullString
		cacheControl sql.NullString
		lastModified string
		metaJSON     sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, key).Scan(&size, &etag, &contentType, &cacheControl, &lastModified, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return object.Object{}, object.ErrNotFound
	}
	if err != nil {
		return object.Object{}, fmt.Errorf("sqlite: stat object: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, lastModified)
	if err != nil {
		return object.Object{}, fmt.Errorf("sqlite: parse last_modified: %w", err)
	}
	metaMap, err := decodeMeta(metaJSON.String)
	if err != nil {
		return object.Object{}, err
	}

	return object.Object{
		Key:          key,
		Size:         size,
		ETag:         etag.String,
		ContentType:  contentType.String,
		CacheControl: cacheControl.String,
		LastModified: t,
		CustomMeta:   metaMap,
	}, nil
}

// Delete removes an object by key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table)
	res, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("sqlite: delete object: %w", err)
	}

	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return object.ErrNotFound
	}
	return err
}

func (s *Storage) save(ctx context.Context, key string, r io.Reader, opts object.PutOptions) (object.Object, error) {
	if err := s.ensureDB(); err != nil {
		return object.Object{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return object.Object{}, fmt.Errorf("sqlite: read content: %w", err)
	}

	metaJSON, err := encodeMeta(opts.Meta)
	if err != nil {
		return object.Object{}, err
	}

	now := time.Now().UTC()
	obj := object.Object{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         hashETag(data),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
		LastModified: now,
		CustomMeta:   cloneMeta(opts.Meta),
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, data, size, etag, content_type, cache_control, last_modified, meta) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	if s.allowOverwrite {
		query += ` ON CONFLICT(key) DO UPDATE SET data=excluded.data, size=excluded.size, etag=excluded.etag, content_type=excluded.content_type, cache_control=excluded.cache_control, last_modified=excluded.last_modified, meta=excluded.meta`
	}

	_, err = s.db.ExecContext(ctx, query,
		key,
		data,
		obj.Size,
		nullIfEmpty(obj.ETag),
		nullIfEmpty(opts.ContentType),
		nullIfEmpty(opts.CacheControl),
		now.Format(time.RFC3339Nano),
		nullIfEmpty(metaJSON),
	)
	if err != nil {
		if isConflict(err) {
			return object.Object{}, object.ErrConflict
		}
		return object.Object{}, fmt.Errorf("sqlite: put object: %w", err)
	}

	return obj, nil
}

func (s *Storage) ensureDB() error {
	if s.db == nil {
		return errors.New("sqlite: storage not initialized")
	}
	return nil
}

func hashETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func encodeMeta(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("sqlite: marshal metadata: %w", err)
	}
	return string(b), nil
}

func decodeMeta(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal metadata: %w", err)
	}
	return out, nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func sanitizeName(name string) (string, error) {
	if !tableNamePattern.MatchString(name) {
		return "", fmt.Errorf("sqlite: invalid table name %q", name)
	}
	return name, nil
}

func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

func cloneMeta(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure Storage implements ObjectStorage interface.
var _ object.ObjectStorage = (*Storage)(nil)
