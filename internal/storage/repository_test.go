package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"expenses/internal/core"
)

func sample() core.Collection {
	return core.Collection{
		{Name: "Salary", Type: core.Income, Transactions: []core.Transaction{
			{ID: "s1", Name: "Pay", Amount: core.Money{Cents: 100000}, Date: core.NewDate(2024, 1, 1)},
		}},
		{Name: "Food", Type: core.Expense, Transactions: []core.Transaction{}},
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()
	file, err := NewFileBackend(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	db, err := NewSQLiteBackend(filepath.Join(dir, "db", "test.db"))
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"sqlite": db,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewRepository(b, "")

			got, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("load empty: %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil collection, got %#v", got)
			}

			if err := repo.Save(ctx, sample()); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err = repo.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(got) != 2 || got[0].Transactions[0].Amount.Cents != 100000 {
				t.Fatalf("unexpected collection: %+v", got)
			}

			// Save overwrites in full.
			if err := repo.Save(ctx, core.Collection{}); err != nil {
				t.Fatalf("save empty: %v", err)
			}
			got, _ = repo.Load(ctx)
			if len(got) != 0 {
				t.Fatalf("expected overwrite, got %+v", got)
			}
		})
	}
}

func TestRepositoryLoadFailsOpenOnGarbage(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	_ = b.Write(ctx, DefaultKey, []byte("{definitely not json"))

	got, err := NewRepository(b, DefaultKey).Load(ctx)
	if err != nil {
		t.Fatalf("garbage should load as empty, got error %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %+v", got)
	}
}

func TestRepositoryRefusesNewerVersion(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	_ = b.Write(ctx, DefaultKey, []byte(`{"version":99,"categories":[]}`))

	_, err := NewRepository(b, DefaultKey).Load(ctx)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestRepositoryMigrate(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	_ = b.Write(ctx, DefaultKey, []byte(legacyDoc))
	repo := NewRepository(b, DefaultKey)

	migrated, err := repo.Migrate(ctx)
	if err != nil || !migrated {
		t.Fatalf("expected migration, got migrated=%v err=%v", migrated, err)
	}

	raw, _ := b.Read(ctx, DefaultKey)
	d, err := Decode(raw)
	if err != nil || d.Version != SchemaVersion || d.Migrated {
		t.Fatalf("stored document not at current version: %+v err=%v", d, err)
	}

	migrated, err = repo.Migrate(ctx)
	if err != nil || migrated {
		t.Fatalf("second migrate should be a no-op, got migrated=%v err=%v", migrated, err)
	}
}

func TestRepositoryKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	if err := NewRepository(b, "a").Save(ctx, sample()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := NewRepository(b, "b").Load(ctx)
	if len(got) != 0 {
		t.Fatalf("key b should be empty, got %+v", got)
	}
}

func TestSnapshotRevisionTracksWrites(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewRepository(b, "")
			empty, err := repo.Snapshot(ctx)
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			if empty.Revision != NoRevision {
				t.Fatalf("expected %q for missing document, got %q", NoRevision, empty.Revision)
			}
			if c, err := empty.Collection(ctx); err != nil || len(c) != 0 {
				t.Fatalf("expected empty collection, got %+v %v", c, err)
			}

			// Another writer on the same backend.
			if err := NewRepository(b, "").Save(ctx, sample()); err != nil {
				t.Fatalf("save: %v", err)
			}
			first, err := repo.Snapshot(ctx)
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			if first.Revision == NoRevision {
				t.Fatalf("expected a revision after save")
			}
			again, _ := repo.Snapshot(ctx)
			if again.Revision != first.Revision {
				t.Fatalf("unchanged document changed revision: %q vs %q", first.Revision, again.Revision)
			}

			next := sample()
			next[1].Transactions = append(next[1].Transactions, core.Transaction{
				ID: "f1", Name: "Lunch", Amount: core.Money{Cents: 300}, Date: core.NewDate(2024, 1, 2),
			})
			if err := repo.Save(ctx, next); err != nil {
				t.Fatalf("save: %v", err)
			}
			second, _ := repo.Snapshot(ctx)
			if second.Revision == first.Revision {
				t.Fatalf("expected revision to change after write")
			}
			if want, _ := Revision(next); second.Revision != want {
				t.Fatalf("Revision() = %q, snapshot reports %q", want, second.Revision)
			}
			c, err := second.Collection(ctx)
			if err != nil {
				t.Fatalf("collection: %v", err)
			}
			if c.TransactionCount() != 2 {
				t.Fatalf("expected 2 transactions, got %d", c.TransactionCount())
			}
		})
	}
}

func TestMigrateSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	for i := 0; i < 2; i++ {
		v, err := migrateSchema(path)
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if v != 1 {
			t.Fatalf("run %d: expected schema version 1, got %d", i+1, v)
		}
	}
}

func TestFileBackendLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := b.Read(ctx, "categories"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := b.Write(ctx, "categories", []byte("[]")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "categories.json")); err != nil {
		t.Fatalf("expected categories.json: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
	if err := b.Write(ctx, "../escape", []byte("x")); err == nil {
		t.Fatalf("expected error for path-like key")
	}
}
