package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// ErrUnsupportedDialect is returned for drivers other than sqlite and postgres.
var ErrUnsupportedDialect = errors.New("unsupported sql dialect")

const (
	itemsTable  = "items"
	keysTable   = "sent_keys"
	stateTable  = "delivery_state"
	stateRowID  = 1
	sqliteQuery = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		body         TEXT NOT NULL,
		source       TEXT NOT NULL,
		permalink    TEXT NOT NULL,
		guid         TEXT NOT NULL,
		published_at BIGINT NOT NULL,
		fetched_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS items_fetched_at_idx ON items (fetched_at)`,
	`CREATE TABLE IF NOT EXISTS sent_keys (
		seq     INTEGER NOT NULL,
		key_val TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_state (
		id           INTEGER PRIMARY KEY,
		last_sent_at BIGINT NOT NULL
	)`,
}

// SQLRepository persists collected items and the delivery record in SQLite
// or Postgres.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ItemRepository = (*SQLRepository)(nil)

// OpenSQL opens the database for driver ("sqlite" or "postgres") and
// creates the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	builder, err := builderFor(driver)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += sqliteQuery
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	repo := &SQLRepository{db: db, builder: builder}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wires an existing sql.DB. The schema must already exist.
func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	builder, err := builderFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLRepository{db: db, builder: builder}, nil
}

func builderFor(driver string) (sq.StatementBuilderType, error) {
	switch driver {
	case "sqlite":
		return sq.StatementBuilder.PlaceholderFormat(sq.Question), nil
	case "postgres":
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar), nil
	default:
		return sq.StatementBuilderType{}, fmt.Errorf("%w: %q", ErrUnsupportedDialect, driver)
	}
}

func (r *SQLRepository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveItems inserts items whose ID is not stored yet and reports how many
// were new.
func (r *SQLRepository) SaveItems(ctx context.Context, items []domain.Item) (int, error) {
	if r.db == nil || len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, item := range items {
		query, args, err := r.builder.
			Insert(itemsTable).
			Columns("id", "title", "body", "source", "permalink", "guid", "published_at", "fetched_at").
			Values(item.ID, item.Title, item.BodyText, item.SourceName, item.Permalink, item.GUID,
				toMillis(item.PublishedAt), toMillis(item.FetchedAt)).
			Suffix("ON CONFLICT (id) DO NOTHING").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert item %s: %w", item.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit items: %w", err)
	}
	return inserted, nil
}

// RecentItems returns items fetched at or after since, newest first.
func (r *SQLRepository) RecentItems(ctx context.Context, since time.Time, limit int) ([]domain.Item, error) {
	if r.db == nil {
		return nil, nil
	}

	builder := r.builder.
		Select("id", "title", "body", "source", "permalink", "guid", "published_at", "fetched_at").
		From(itemsTable).
		Where(sq.GtOrEq{"fetched_at": toMillis(since)}).
		OrderBy("fetched_at DESC", "id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}

	var items []domain.Item
	for rows.Next() {
		var (
			item                 domain.Item
			published, fetchedAt int64
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.BodyText, &item.SourceName,
			&item.Permalink, &item.GUID, &published, &fetchedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.PublishedAt = fromMillis(published)
		item.FetchedAt = fromMillis(fetchedAt)
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return items, nil
}

// Records exposes the delivery record stored in the same database.
func (r *SQLRepository) Records() *SQLRecordStore {
	return &SQLRecordStore{repo: r}
}

// SQLRecordStore keeps the delivery record in the sent_keys and
// delivery_state tables.
type SQLRecordStore struct {
	repo *SQLRepository
}

var _ ports.RecordStore = (*SQLRecordStore)(nil)

// Load reads keys in stored order.
func (s *SQLRecordStore) Load(ctx context.Context) (domain.DeliveryRecord, error) {
	var record domain.DeliveryRecord

	query, args, err := s.repo.builder.Select("key_val").From(keysTable).OrderBy("seq ASC").ToSql()
	if err != nil {
		return record, fmt.Errorf("build select keys: %w", err)
	}

	rows, err := s.repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return record, fmt.Errorf("query keys: %w", err)
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return domain.DeliveryRecord{}, fmt.Errorf("scan key: %w", err)
		}
		record.Keys = append(record.Keys, key)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return domain.DeliveryRecord{}, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return domain.DeliveryRecord{}, fmt.Errorf("close rows: %w", closeErr)
	}

	query, args, err = s.repo.builder.Select("last_sent_at").From(stateTable).Where(sq.Eq{"id": stateRowID}).ToSql()
	if err != nil {
		return domain.DeliveryRecord{}, fmt.Errorf("build select state: %w", err)
	}

	var lastSent int64
	switch err := s.repo.db.QueryRowContext(ctx, query, args...).Scan(&lastSent); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.DeliveryRecord{}, fmt.Errorf("query state: %w", err)
	default:
		record.LastSentAt = fromMillis(lastSent)
	}

	return record, nil
}

// Save replaces the stored record atomically.
func (s *SQLRecordStore) Save(ctx context.Context, record domain.DeliveryRecord) error {
	tx, err := s.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.repo.builder.Delete(keysTable).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear keys: %w", err)
	}

	if len(record.Keys) > 0 {
		insert := s.repo.builder.Insert(keysTable).Columns("seq", "key_val")
		for i, key := range record.Keys {
			insert = insert.Values(i, key)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert keys: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert keys: %w", err)
		}
	}

	query, args, err = s.repo.builder.
		Insert(stateTable).
		Columns("id", "last_sent_at").
		Values(stateRowID, toMillis(record.LastSentAt)).
		Suffix("ON CONFLICT (id) DO UPDATE SET last_sent_at = EXCLUDED.last_sent_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
