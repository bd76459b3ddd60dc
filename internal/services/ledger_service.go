// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/notify"
	"expenses/internal/storage"
)

// ChangePublisher announces committed changes to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, e notify.Event) error
}

// Snapshotter is implemented by stores that can report a revision of the
// stored document. Read models are cached only over such stores.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*storage.Snapshot, error)
}

// LedgerService orchestrates category and transaction operations over the
// stored collection. Every mutation is a full load, modify, save cycle
// serialized by a single mutex.
type LedgerService struct {
	mu     sync.Mutex
	store  storage.Store
	hub    *notify.Hub
	remote ChangePublisher
	views  *cache.LRUCache[any]
	loc    *time.Location
	now    func() time.Time
	origin string

	snapshots Snapshotter
	// revision of the last document this service saved, guarded by mu
	saved string
}

type Option func(*LedgerService)

// WithHub publishes local change events to hub.
func WithHub(hub *notify.Hub) Option {
	return func(s *LedgerService) { s.hub = hub }
}

// WithPublisher announces changes to other processes.
func WithPublisher(p ChangePublisher) Option {
	return func(s *LedgerService) { s.remote = p }
}

// WithCache memoizes read models per stored document revision.
func WithCache(c *cache.LRUCache[any]) Option {
	return func(s *LedgerService) { s.views = c }
}

// WithLocation sets the time zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *LedgerService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithOrigin sets the instance id stamped on outgoing events.
func WithOrigin(origin string) Option {
	return func(s *LedgerService) { s.origin = origin }
}

func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		loc:    time.Local,
		now:    time.Now,
		origin: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshots, _ = store.(Snapshotter)
	return s
}

// Origin returns the instance id stamped on events from this service.
func (s *LedgerService) Origin() string { return s.origin }

// Now returns the current time in the configured location.
func (s *LedgerService) Now() time.Time { return s.now().In(s.loc) }

// Categories returns every category sorted by name, transactions newest
// first.
func (s *LedgerService) Categories(ctx context.Context) (core.Collection, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return c.Sorted(), nil
}

// AddCategory creates an empty category.
func (s *LedgerService) AddCategory(ctx context.Context, name, typ string) (core.Category, error) {
	// An unparseable type becomes "", which ValidateCategory reports.
	catType, _ := core.ParseCategoryType(typ)

	var created core.Category
	err := s.mutate(ctx, func(c core.Collection) (core.Collection, error) {
		if err := core.ValidateCategory(c, name, catType); err != nil {
			return nil, err
		}
		created = core.Category{
			Name:         strings.TrimSpace(name),
			Type:         catType,
			Transactions: []core.Transaction{},
		}
		return append(c, created), nil
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category added",
		log.NewFields().WithComponent(log.ComponentLedger).WithCategory(created.Name, string(created.Type)).ToSlice()...)
	s.changed(ctx, notify.Event{Kind: notify.CategoryAdded, Category: created.Name})
	return created, nil
}

// DeleteCategory removes a category and all of its transactions.
func (s *LedgerService) DeleteCategory(ctx context.Context, name string) error {
	var removed string
	err := s.mutate(ctx, func(c core.Collection) (core.Collection, error) {
		i := c.Index(name)
		if i < 0 {
			return nil, s.categoryNotFound(c, name)
		}
		removed = c[i].Name
		return append(c[:i], c[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldCategory, removed)
	s.changed(ctx, notify.Event{Kind: notify.CategoryDeleted, Category: removed})
	return nil
}

// AddTransaction records a transaction under the named category. When
// in.ID matches an existing transaction of that category the call is a
// no-op returning the stored transaction and created=false.
func (s *LedgerService) AddTransaction(ctx context.Context, category string, in core.TransactionInput) (tx core.Transaction, created bool, err error) {
	var catName string
	err = s.mutate(ctx, func(c core.Collection) (core.Collection, error) {
		cat := c.Find(category)
		if cat == nil {
			return nil, s.categoryNotFound(c, category)
		}
		catName = cat.Name

		if id := strings.TrimSpace(in.ID); id != "" {
			if i := cat.TransactionIndex(id); i >= 0 {
				tx = cat.Transactions[i]
				return nil, errNoChange
			}
		}

		valid, err := in.Validate()
		if err != nil {
			return nil, err
		}
		if valid.ID == "" {
			valid.ID = uuid.NewString()
		}
		tx = valid
		created = true
		cat.Transactions = append(cat.Transactions, valid)
		return c, nil
	})
	if err != nil {
		return core.Transaction{}, false, err
	}
	if !created {
		return tx, false, nil
	}

	slog.InfoContext(ctx, "Transaction added",
		log.NewFields().
			WithComponent(log.ComponentLedger).
			WithCategory(catName, "").
			WithTransaction(tx.ID, tx.Name, tx.Amount.Cents).
			ToSlice()...)
	s.changed(ctx, notify.Event{Kind: notify.TransactionAdded, Category: catName, TransactionID: tx.ID})
	return tx, true, nil
}

// DeleteTransaction removes the transaction with id from the named
// category.
func (s *LedgerService) DeleteTransaction(ctx context.Context, category, id string) error {
	var catName string
	err := s.mutate(ctx, func(c core.Collection) (core.Collection, error) {
		cat := c.Find(category)
		if cat == nil {
			return nil, s.categoryNotFound(c, category)
		}
		i := cat.TransactionIndex(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q in %q", core.ErrTransactionNotFound, id, cat.Name)
		}
		catName = cat.Name
		cat.Transactions = append(cat.Transactions[:i], cat.Transactions[i+1:]...)
		return c, nil
	})
	if err != nil {
		return err
	}
	s.transactionDeleted(ctx, catName, id)
	return nil
}

// DeleteTransactionByID removes the transaction with id from whichever
// category holds it, and returns that category's name.
func (s *LedgerService) DeleteTransactionByID(ctx context.Context, id string) (string, error) {
	var catName string
	err := s.mutate(ctx, func(c core.Collection) (core.Collection, error) {
		for ci := range c {
			if i := c[ci].TransactionIndex(id); i >= 0 {
				catName = c[ci].Name
				c[ci].Transactions = append(c[ci].Transactions[:i], c[ci].Transactions[i+1:]...)
				return c, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", core.ErrTransactionNotFound, id)
	})
	if err != nil {
		return "", err
	}
	s.transactionDeleted(ctx, catName, id)
	return catName, nil
}

// ReplaceIfEmpty stores c only when the current collection has no
// categories. It reports whether the write happened.
func (s *LedgerService) ReplaceIfEmpty(ctx context.Context, c core.Collection) (bool, error) {
	replaced := false
	err := s.mutate(ctx, func(cur core.Collection) (core.Collection, error) {
		if len(cur) > 0 {
			return nil, errNoChange
		}
		replaced = true
		return c.Clone(), nil
	})
	if err != nil || !replaced {
		return false, err
	}
	s.changed(ctx, notify.Event{Kind: notify.CollectionReloaded})
	return true, nil
}

// Ping verifies the store can be read.
func (s *LedgerService) Ping(ctx context.Context) error {
	_, err := s.store.Load(ctx)
	return err
}

// Invalidate drops memoized read models.
func (s *LedgerService) Invalidate() {
	if s.views != nil {
		s.views.Purge()
	}
}

// Run purges memoized read models whenever hub reports a change, including
// changes relayed from other processes. It returns when ctx is done.
func (s *LedgerService) Run(ctx context.Context) error {
	if s.hub == nil {
		<-ctx.Done()
		return nil
	}
	sub := s.hub.Subscribe(16)
	defer sub.Close()
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return nil
			}
			s.Invalidate()
		case <-ctx.Done():
			return nil
		}
	}
}

// WatchStore checks the stored document revision every interval and, when
// another process has rewritten it, purges cached views and publishes a
// remote CollectionReloaded event. It returns when ctx is done.
func (s *LedgerService) WatchStore(ctx context.Context, interval time.Duration) error {
	if s.snapshots == nil || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		rev, foreign, err := s.checkRevision(ctx, last)
		if err != nil {
			slog.WarnContext(ctx, "Store revision check failed",
				log.FieldComponent, log.ComponentLedger,
				log.FieldError, err)
		} else {
			if foreign {
				slog.InfoContext(ctx, "Stored document changed by another process",
					log.FieldComponent, log.ComponentLedger,
					"revision", rev)
				s.Invalidate()
				if s.hub != nil {
					s.hub.Publish(notify.Event{Kind: notify.CollectionReloaded, At: s.now(), Remote: true})
				}
			}
			last = rev
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// checkRevision reads the current revision and reports whether it differs
// from last without being this service's own write.
func (s *LedgerService) checkRevision(ctx context.Context, last string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	foreign := last != "" && snap.Revision != last && snap.Revision != s.saved
	return snap.Revision, foreign, nil
}

var errNoChange = errors.New("no change")

// mutate runs fn against a freshly loaded collection and saves the result.
// fn returning errNoChange skips the save without error.
func (s *LedgerService) mutate(ctx context.Context, fn func(core.Collection) (core.Collection, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	next, err := fn(c)
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	if s.snapshots != nil {
		s.saved, _ = storage.Revision(next)
	}
	return nil
}

func (s *LedgerService) transactionDeleted(ctx context.Context, category, id string) {
	slog.InfoContext(ctx, "Transaction deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldCategory, category,
		log.FieldTransactionID, id)
	s.changed(ctx, notify.Event{Kind: notify.TransactionDeleted, Category: category, TransactionID: id})
}

// changed invalidates cached views and announces e. Announcing is best
// effort: the change is already saved.
func (s *LedgerService) changed(ctx context.Context, e notify.Event) {
	s.Invalidate()
	e.Origin = s.origin
	e.At = s.now()
	if s.hub != nil {
		s.hub.Publish(e)
	}
	if s.remote != nil {
		if err := s.remote.PublishChange(ctx, e); err != nil {
			slog.WarnContext(ctx, "Failed to announce change",
				log.FieldComponent, log.ComponentLedger,
				log.FieldEventKind, string(e.Kind),
				log.FieldError, err)
		}
	}
}

func (s *LedgerService) categoryNotFound(c core.Collection, name string) error {
	if hint := closestName(c.Names(), name); hint != "" {
		return fmt.Errorf("%w: %q (did you mean %q?)", core.ErrCategoryNotFound, strings.TrimSpace(name), hint)
	}
	return fmt.Errorf("%w: %q", core.ErrCategoryNotFound, strings.TrimSpace(name))
}

// closestName returns the candidate nearest to name by edit distance, or
// "" when nothing is close enough to be a plausible typo.
func closestName(candidates []string, name string) string {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return ""
	}
	best, bestDist := "", -1
	for _, cand := range candidates {
		d := levenshtein.ComputeDistance(target, strings.ToLower(cand))
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	limit := max(2, len(target)/3)
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
