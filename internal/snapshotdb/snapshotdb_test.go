package snapshotdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SergeyParamoshkin/issueblog/internal/cache"
	"github.com/SergeyParamoshkin/issueblog/internal/model"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
	"github.com/SergeyParamoshkin/issueblog/internal/user"
)

func testDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, path
}

func sampleSnapshot(repo string, q source.Query) *cache.Snapshot {
	return &cache.Snapshot{
		Repo:  repo,
		Query: q,
		Articles: []model.Article{
			{
				Number:    1,
				Title:     "Intro to CSS",
				Body:      "## Box model",
				State:     "open",
				User:      &user.User{ID: 7, Login: "hankliu"},
				Labels:    []model.Label{{ID: 3, Name: "css", Color: "264de4"}},
				Milestone: &model.Milestone{Number: 2},
				CreatedAt: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
			},
			{Number: 2, Title: "Closures", Labels: []model.Label{}},
		},
		FetchedAt: time.Date(2023, 5, 2, 8, 30, 0, 123, time.UTC),
	}
}

func TestSaveAndLoad(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()
	q := source.Query{Labels: []string{"css"}, Direction: "asc"}
	snap := sampleSnapshot("blog", q)
	key := cache.Key("blog", q)

	if err := db.Save(ctx, key, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected a snapshot")
	}
	if got.Repo != "blog" || got.Query.Direction != "asc" || len(got.Query.Labels) != 1 {
		t.Errorf("unexpected repo/query: %+v", got)
	}
	if !got.FetchedAt.Equal(snap.FetchedAt) {
		t.Errorf("fetched_at mismatch: %v != %v", got.FetchedAt, snap.FetchedAt)
	}
	if len(got.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got.Articles))
	}
	first := got.Articles[0]
	if first.Title != "Intro to CSS" || first.User.Login != "hankliu" || first.Difficulty() != 2 {
		t.Errorf("article not round-tripped: %+v", first)
	}
}

func TestSaveOverwrites(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()
	key := cache.Key("blog", source.Query{})

	snap := sampleSnapshot("blog", source.Query{})
	if err := db.Save(ctx, key, snap); err != nil {
		t.Fatalf("first save: %v", err)
	}

	snap.Articles = snap.Articles[:1]
	snap.FetchedAt = snap.FetchedAt.Add(time.Hour)
	if err := db.Save(ctx, key, snap); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := db.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Articles) != 1 {
		t.Errorf("expected snapshot to be replaced wholesale, got %d articles", len(got.Articles))
	}
}

func TestLoadMissing(t *testing.T) {
	db, _ := testDB(t)

	got, err := db.Load(context.Background(), "nope?")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil snapshot, got %+v", got)
	}
}

func TestDeleteAndClear(t *testing.T) {
	db, path := testDB(t)
	ctx := context.Background()

	for _, snap := range []*cache.Snapshot{
		sampleSnapshot("blog", source.Query{}),
		sampleSnapshot("blog", source.Query{Labels: []string{"css"}}),
		sampleSnapshot("notes", source.Query{}),
	} {
		if err := db.Save(ctx, cache.Key(snap.Repo, snap.Query), snap); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	if err := db.Delete(ctx, "blog"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	keys, err := db.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected 1 remaining snapshot, got %d", len(keys))
	}
	if _, ok := keys[cache.Key("notes", source.Query{})]; !ok {
		t.Errorf("notes snapshot should survive, got %v", keys)
	}

	count, size, err := db.Stats(ctx, path)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 1 || size == 0 {
		t.Errorf("unexpected stats count=%d size=%d", count, size)
	}

	if err := db.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	keys, _ = db.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("expected empty store, got %d", len(keys))
	}
}

func TestCacheUsesStoreAcrossInstances(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context, string, source.Query) ([]model.Article, error) {
		calls++
		return []model.Article{{Number: calls}}, nil
	}

	first := cache.New(load, cache.WithStore(db))
	if _, err := first.Get(ctx, "blog", source.Query{}); err != nil {
		t.Fatalf("first get: %v", err)
	}

	restarted := cache.New(load, cache.WithStore(db))
	snap, err := restarted.Get(ctx, "blog", source.Query{})
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the stored snapshot to be reused, loader ran %d times", calls)
	}
	if snap.Articles[0].Number != 1 {
		t.Errorf("unexpected article %+v", snap.Articles[0])
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "deep", "snapshots.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestPullRequestFlagSurvivesRestart(t *testing.T) {
	db, _ := testDB(t)
	ctx := context.Background()
	load := func(context.Context, string, source.Query) ([]model.Article, error) {
		return []model.Article{
			{Number: 1, Title: "an article"},
			{Number: 2, Title: "a PR", IsPullRequest: true},
		}, nil
	}

	first := cache.New(load, cache.WithStore(db))
	if _, err := first.Get(ctx, "blog", source.Query{}); err != nil {
		t.Fatalf("first get: %v", err)
	}

	restarted := cache.New(func(context.Context, string, source.Query) ([]model.Article, error) {
		return nil, errors.New("loader must not run while the stored snapshot is fresh")
	}, cache.WithStore(db))
	snap, err := restarted.Get(ctx, "blog", source.Query{})
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if len(snap.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(snap.Articles))
	}
	if snap.Articles[0].IsPullRequest {
		t.Errorf("#1 restored as a pull request")
	}
	if !snap.Articles[1].IsPullRequest {
		t.Errorf("#2 lost its pull request flag: %+v", snap.Articles[1])
	}
}
