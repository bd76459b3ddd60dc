package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"expenses/internal/core"
	"expenses/internal/log"
)

// DefaultKey is the single key the collection document lives under.
const DefaultKey = "categories"

// ErrNotFound is returned by a Backend when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a key-value store holding whole documents.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// Store is the load/save contract consumed by the ledger service.
type Store interface {
	Load(ctx context.Context) (core.Collection, error)
	Save(ctx context.Context, c core.Collection) error
}

// Repository reads and writes the collection document under one key.
// It owns no lock: concurrent writers race and the last write wins.
type Repository struct {
	backend Backend
	key     string
}

func NewRepository(backend Backend, key string) *Repository {
	if key == "" {
		key = DefaultKey
	}
	return &Repository{backend: backend, key: key}
}

// Load returns the stored collection. A missing or unparseable document
// yields an empty collection; only backend failures are errors.
func (r *Repository) Load(ctx context.Context) (core.Collection, error) {
	d, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return d.Collection, nil
}

// NoRevision identifies a document that has never been written.
const NoRevision = "none"

var revisionSpace = uuid.MustParse("6f1c3f0e-2d0a-4c55-9a51-3b1f6e3f8c21")

// Snapshot is a single read of the stored document. Its Revision changes
// whenever the stored bytes change, whoever wrote them.
type Snapshot struct {
	Revision string
	key      string
	data     []byte
	found    bool
}

// Snapshot reads the stored document once without decoding it.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	data, err := r.backend.Read(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return &Snapshot{Revision: NoRevision, key: r.key}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.key, err)
	}
	return &Snapshot{
		Revision: revisionOf(data),
		key:      r.key,
		data:     data,
		found:    true,
	}, nil
}

// Revision returns the revision a Snapshot reports once c has been saved.
func Revision(c core.Collection) (string, error) {
	data, err := Encode(c)
	if err != nil {
		return "", err
	}
	return revisionOf(data), nil
}

func revisionOf(data []byte) string {
	return uuid.NewSHA1(revisionSpace, data).String()
}

// Collection decodes the snapshot with the same rules as Load.
func (s *Snapshot) Collection(ctx context.Context) (core.Collection, error) {
	d, err := s.decode(ctx)
	if err != nil {
		return nil, err
	}
	return d.Collection, nil
}

func (s *Snapshot) decode(ctx context.Context) (Decoded, error) {
	if !s.found {
		return Decoded{Collection: core.Collection{}, Version: SchemaVersion}, nil
	}
	d, err := Decode(s.data)
	switch {
	case errors.Is(err, ErrUnsupportedVersion):
		return Decoded{}, err
	case errors.Is(err, ErrEmptyDocument):
		return Decoded{Collection: core.Collection{}, Version: SchemaVersion}, nil
	case err != nil:
		slog.WarnContext(ctx, "Stored document unreadable, starting from an empty collection",
			log.FieldComponent, log.ComponentStorage,
			"key", s.key,
			"bytes", len(s.data),
			log.FieldError, err)
		return Decoded{Collection: core.Collection{}, Version: SchemaVersion}, nil
	}
	return d, nil
}

func (r *Repository) load(ctx context.Context) (Decoded, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return Decoded{}, err
	}
	return snap.decode(ctx)
}

// Save overwrites the stored document in full.
func (r *Repository) Save(ctx context.Context, c core.Collection) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := r.backend.Write(ctx, r.key, data); err != nil {
		return fmt.Errorf("write %s: %w", r.key, err)
	}
	slog.DebugContext(ctx, "Collection saved",
		log.FieldComponent, log.ComponentStorage,
		"key", r.key,
		"categories", len(c),
		"transactions", c.TransactionCount())
	return nil
}

// Migrate rewrites the stored document when loading it required a schema
// migration. It reports whether a write happened.
func (r *Repository) Migrate(ctx context.Context) (bool, error) {
	d, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	if !d.Migrated {
		return false, nil
	}
	if err := r.Save(ctx, d.Collection); err != nil {
		return false, fmt.Errorf("save migrated document: %w", err)
	}
	slog.InfoContext(ctx, "Stored document migrated",
		log.FieldComponent, log.ComponentStorage,
		"key", r.key,
		"from_version", d.Version,
		"to_version", SchemaVersion)
	return true, nil
}

func (r *Repository) Close() error {
	if r.backend != nil {
		return r.backend.Close()
	}
	return nil
}
