// Package snapshotdb persists cache snapshots in SQLite so a restarted
// process can serve a still-fresh article list without refetching it.
package snapshotdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SergeyParamoshkin/issueblog/internal/cache"
	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
)

type DB struct {
	db *sql.DB
}

var _ cache.Store = (*DB)(nil)

// record is the stored form of an article. The pull request flag is not part
// of the public article encoding, so it is carried separately.
type record struct {
	model.Article
	PullRequest bool `json:"pull_request,omitempty"`
}

func toRecords(articles []model.Article) []record {
	out := make([]record, len(articles))
	for i, a := range articles {
		out[i] = record{Article: a, PullRequest: a.IsPullRequest}
	}

	return out
}

func fromRecords(records []record) []model.Article {
	out := make([]model.Article, len(records))
	for i, r := range records {
		out[i] = r.Article
		out[i].IsPullRequest = r.PullRequest
	}

	return out
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &DB{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *DB) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			key        TEXT PRIMARY KEY,
			repo       TEXT NOT NULL,
			query      TEXT NOT NULL,
			articles   TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_repo ON snapshots(repo);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	return nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) Save(ctx context.Context, key string, snap *cache.Snapshot) error {
	query, err := json.Marshal(snap.Query)
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	articles, err := json.Marshal(toRecords(snap.Articles))
	if err != nil {
		return fmt.Errorf("encoding articles: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, repo, query, articles, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			query = excluded.query,
			articles = excluded.articles,
			fetched_at = excluded.fetched_at
	`, key, snap.Repo, string(query), string(articles), snap.FetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}

	return nil
}

func (s *DB) Load(ctx context.Context, key string) (*cache.Snapshot, error) {
	var (
		repo, query, articles, fetchedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT repo, query, articles, fetched_at FROM snapshots WHERE key = ?", key,
	).Scan(&repo, &query, &articles, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}

	snap := &cache.Snapshot{Repo: repo}
	if err := json.Unmarshal([]byte(query), &snap.Query); err != nil {
		return nil, fmt.Errorf("decoding query of %s: %w", key, err)
	}
	var records []record
	if err := json.Unmarshal([]byte(articles), &records); err != nil {
		return nil, fmt.Errorf("decoding articles of %s: %w", key, err)
	}
	snap.Articles = fromRecords(records)
	if snap.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt); err != nil {
		return nil, fmt.Errorf("decoding fetched_at of %s: %w", key, err)
	}

	return snap, nil
}

func (s *DB) Delete(ctx context.Context, repo string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE repo = ?", repo)
	return err
}

func (s *DB) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots")
	return err
}

// Stats reports how many snapshots are stored and the file size.
func (s *DB) Stats(ctx context.Context, dbPath string) (int, int64, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		return 0, 0, err
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, err
	}

	return count, info.Size(), nil
}

// Keys lists the stored snapshot keys with their repository and query.
func (s *DB) Keys(ctx context.Context) (map[string]source.Query, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, query FROM snapshots ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]source.Query)
	for rows.Next() {
		var key, query string
		if err := rows.Scan(&key, &query); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		var q source.Query
		if err := json.Unmarshal([]byte(query), &q); err != nil {
			return nil, fmt.Errorf("decoding query of %s: %w", key, err)
		}
		keys[key] = q
	}

	return keys, rows.Err()
}
