//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"flex_reviews/internal/domain"
	mysqlrepo "flex_reviews/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string { return &s }

func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations", "mysql")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviews",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/reviews?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func review(sourceID, property, channel string, rating int, at time.Time) domain.Review {
	return domain.Review{
		SourceID:     sourceID,
		Source:       domain.SourceHostaway,
		PropertyID:   property,
		PropertyName: "Flat " + property,
		GuestName:    "Guest " + sourceID,
		Rating:       rating,
		PublicReview: "ok",
		ReviewCategories: []domain.Category{
			{Category: "cleanliness", Rating: float64(rating * 2)},
		},
		Channel:     channel,
		ReviewType:  "guest-to-host",
		SubmittedAt: at,
		Status:      "published",
	}
}

// ---------- the test ----------
func TestRepo_MySQL_UpsertQueryApprove(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	t0 := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	r1 := review("7453", "p1", "airbnb", 5, t0)
	r1.PrivateNotes = pstr("left early")
	r2 := review("7454", "p1", "booking.com", 3, t0.Add(24*time.Hour))
	r3 := review("7455", "p2", "airbnb", 4, t0.AddDate(0, 1, 0))

	if err := repo.UpsertBatch(ctx, []domain.Review{r1, r2, r3}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	all, err := repo.Find(ctx, domain.StoreQuery{Order: domain.Order{Field: domain.FieldSubmittedAt, Desc: true}})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 rows, got %d", len(all))
	}
	if all[0].SourceID != "7455" || all[2].SourceID != "7453" {
		t.Fatalf("unexpected order: %s, %s", all[0].SourceID, all[2].SourceID)
	}
	if all[2].PrivateNotes == nil || *all[2].PrivateNotes != "left early" {
		t.Fatalf("private notes lost: %+v", all[2].PrivateNotes)
	}
	if len(all[2].ReviewCategories) != 1 || all[2].ReviewCategories[0].Rating != 10 {
		t.Fatalf("categories lost: %+v", all[2].ReviewCategories)
	}

	// filter + paging
	where := domain.And{
		domain.Eq{Field: domain.FieldPropertyID, Value: "p1"},
		domain.Gte{Field: domain.FieldRating, Value: 4},
	}
	got, err := repo.Find(ctx, domain.StoreQuery{Where: where, Take: 10})
	if err != nil {
		t.Fatalf("Find filtered: %v", err)
	}
	if len(got) != 1 || got[0].SourceID != "7453" {
		t.Fatalf("unexpected filtered rows: %+v", got)
	}
	n, err := repo.Count(ctx, domain.Eq{Field: domain.FieldChannel, Value: "airbnb"})
	if err != nil || n != 2 {
		t.Fatalf("Count airbnb = %d, %v", n, err)
	}

	// approve, then re-sync with changed content: decision and id survive
	id := got[0].ID
	approved, err := repo.SetApproval(ctx, id, true, true)
	if err != nil {
		t.Fatalf("SetApproval: %v", err)
	}
	if !approved.Approved || !approved.DisplayOnWebsite {
		t.Fatalf("flags not stored: %+v", approved)
	}

	r1.PublicReview = "edited upstream"
	if err := repo.UpsertBatch(ctx, []domain.Review{r1}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	again, err := repo.Find(ctx, domain.StoreQuery{Where: domain.Eq{Field: domain.FieldApproved, Value: true}})
	if err != nil {
		t.Fatalf("Find approved: %v", err)
	}
	if len(again) != 1 || again[0].ID != id || again[0].PublicReview != "edited upstream" || !again[0].DisplayOnWebsite {
		t.Fatalf("re-sync clobbered staff decision: %+v", again)
	}
	if n, _ := repo.Count(ctx, nil); n != 3 {
		t.Fatalf("re-sync duplicated rows: %d", n)
	}

	// idempotent no-op approval still returns the row
	if _, err := repo.SetApproval(ctx, id, true, true); err != nil {
		t.Fatalf("repeat SetApproval: %v", err)
	}
	if _, err := repo.SetApproval(ctx, "00000000-0000-0000-0000-000000000000", true, true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
