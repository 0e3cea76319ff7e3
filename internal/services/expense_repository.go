package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"explog/internal/amqp"
	"explog/internal/core"
	applog "explog/internal/log"
	"explog/internal/storage"
)

// EventPublisher receives a notification after every mutation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// RemovedEntry is the content of the undo slot: the record and the index it
// occupied before removal.
type RemovedEntry struct {
	Expense core.Expense
	Index   int
}

// ExpenseRepository owns the session's expense collection, newest first, and
// mirrors every mutation to the store. The in-memory list stays
// authoritative when a write fails.
type ExpenseRepository struct {
	mu         sync.Mutex
	records    []core.Expense
	undo       *RemovedEntry
	persistErr error

	store     storage.Store
	key       string
	clock     func() time.Time
	logger    *applog.Logger
	publisher EventPublisher
}

// Option configures an ExpenseRepository.
type Option func(*ExpenseRepository)

func WithClock(clock func() time.Time) Option {
	return func(r *ExpenseRepository) { r.clock = clock }
}

func WithLogger(l *applog.Logger) Option {
	return func(r *ExpenseRepository) { r.logger = l.WithComponent(applog.ComponentExpense) }
}

func WithPublisher(p EventPublisher) Option {
	return func(r *ExpenseRepository) { r.publisher = p }
}

func WithStorageKey(key string) Option {
	return func(r *ExpenseRepository) {
		if key != "" {
			r.key = key
		}
	}
}

func NewExpenseRepository(store storage.Store, opts ...Option) *ExpenseRepository {
	r := &ExpenseRepository{
		store:  store,
		key:    storage.DefaultKey,
		clock:  time.Now,
		logger: applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentExpense),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the collection with the stored one. A missing or unparsable
// blob yields an empty collection; corrupt data is logged, never returned.
func (r *ExpenseRepository) Load(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
	r.undo = nil

	data, found, err := r.store.Get(ctx, r.key)
	if err != nil {
		r.logger.WarnContext(ctx, "Stored expenses unavailable, starting empty",
			applog.FieldStorageKey, r.key,
			applog.FieldError, fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err).Error())
		return
	}
	if !found || len(data) == 0 {
		return
	}

	var records []core.Expense
	if err := json.Unmarshal(data, &records); err != nil {
		r.logger.WarnContext(ctx, "Discarding corrupt stored expenses",
			applog.FieldStorageKey, r.key,
			applog.FieldError, fmt.Errorf("%w: %v", core.ErrCorruptData, err).Error())
		return
	}
	for i, e := range records {
		if e.ID == "" {
			r.logger.WarnContext(ctx, "Discarding corrupt stored expenses",
				applog.FieldStorageKey, r.key,
				applog.FieldIndex, i,
				applog.FieldError, fmt.Errorf("%w: record without id", core.ErrCorruptData).Error())
			return
		}
	}
	r.records = records
}

// Add validates and prepends a new record. A non-positive amount is refused
// with core.ErrInvalidAmount and nothing changes.
func (r *ExpenseRepository) Add(ctx context.Context, amount core.Money, note string, cat core.Category) (core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := core.NewExpense(amount, note, cat, r.clock())
	if err != nil {
		return core.Expense{}, err
	}

	r.records = append([]core.Expense{e}, r.records...)
	r.persist(ctx)

	r.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().
			WithExpense(e.ID, e.Amount.Cents, string(e.Category)).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	r.publish(ctx, amqp.EventCreated, e, 0)
	return e, nil
}

// AddInput parses raw form values and adds the record.
func (r *ExpenseRepository) AddInput(ctx context.Context, amountText, note, category string) (core.Expense, error) {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.Expense{}, err
	}
	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.Expense{}, err
	}
	return r.Add(ctx, amount, note, cat)
}

// Remove deletes the record with id and makes it the only undo target,
// forgetting any earlier one. An unknown id returns core.ErrNotFound and
// leaves both the collection and the undo slot untouched.
func (r *ExpenseRepository) Remove(ctx context.Context, id string) (RemovedEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return RemovedEntry{}, fmt.Errorf("remove %s: %w", id, core.ErrNotFound)
	}

	entry := RemovedEntry{Expense: r.records[idx], Index: idx}
	r.records = append(r.records[:idx:idx], r.records[idx+1:]...)
	r.undo = &entry
	r.persist(ctx)

	r.logger.InfoContext(ctx, "Expense deleted",
		applog.NewFields().
			WithExpense(id, entry.Expense.Amount.Cents, string(entry.Expense.Category)).
			WithOperation(applog.OpDelete).
			ToSlice()...)
	r.publish(ctx, amqp.EventDeleted, entry.Expense, idx)
	return entry, nil
}

// UndoLastRemoval reinserts the record held in the undo slot at its original
// index and clears the slot. The index is not adjusted for records added
// since the removal, so the record may land at a different relative
// position. Returns false when there is nothing to undo.
func (r *ExpenseRepository) UndoLastRemoval(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.undo == nil {
		return false
	}
	entry := *r.undo
	r.undo = nil

	idx := entry.Index
	if idx > len(r.records) {
		idx = len(r.records)
	}
	r.records = append(r.records, core.Expense{})
	copy(r.records[idx+1:], r.records[idx:])
	r.records[idx] = entry.Expense
	r.persist(ctx)

	r.logger.InfoContext(ctx, "Expense restored",
		applog.FieldExpenseID, entry.Expense.ID,
		applog.FieldIndex, idx,
		applog.FieldOperation, applog.OpUndo)
	r.publish(ctx, amqp.EventRestored, entry.Expense, idx)
	return true
}

// DiscardUndo forgets the pending undo target, if any.
func (r *ExpenseRepository) DiscardUndo() {
	r.mu.Lock()
	r.undo = nil
	r.mu.Unlock()
}

// PendingUndo returns the current undo target.
func (r *ExpenseRepository) PendingUndo() (RemovedEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.undo == nil {
		return RemovedEntry{}, false
	}
	return *r.undo, true
}

// List returns a copy of the collection in its stored order.
func (r *ExpenseRepository) List() []core.Expense {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Expense(nil), r.records...)
}

// Get returns the record with id.
func (r *ExpenseRepository) Get(id string) (core.Expense, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.records[idx], true
	}
	return core.Expense{}, false
}

// Len reports the number of records.
func (r *ExpenseRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// PersistErr returns the error of the most recent write, nil if it succeeded.
// The error wraps core.ErrStorageUnavailable.
func (r *ExpenseRepository) PersistErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistErr
}

// Now returns the repository clock's current time.
func (r *ExpenseRepository) Now() time.Time {
	return r.clock()
}

func (r *ExpenseRepository) indexOf(id string) int {
	for i, e := range r.records {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the full collection. Callers hold r.mu.
func (r *ExpenseRepository) persist(ctx context.Context) {
	records := r.records
	if records == nil {
		records = []core.Expense{}
	}
	data, err := json.Marshal(records)
	if err == nil {
		err = r.store.Set(ctx, r.key, data)
	}
	if err != nil {
		r.persistErr = fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		r.logger.WarnContext(ctx, "Change not saved, keeping in-memory state",
			applog.FieldStorageKey, r.key,
			applog.FieldOperation, applog.OpPersist,
			applog.FieldError, err.Error())
		return
	}
	r.persistErr = nil
}

func (r *ExpenseRepository) publish(ctx context.Context, typ amqp.EventType, e core.Expense, idx int) {
	if r.publisher == nil {
		return
	}
	ev := &amqp.ExpenseEvent{
		Type:        typ,
		ID:          e.ID,
		AmountCents: e.Amount.Cents,
		Category:    string(e.Category),
		Note:        e.Note,
		Index:       idx,
		Timestamp:   e.Timestamp,
		EmittedAt:   r.clock(),
	}
	if err := r.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		level := r.logger.WarnContext
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = r.logger.DebugContext
		}
		level(ctx, "Failed to publish expense event",
			"type", typ, applog.FieldExpenseID, e.ID, applog.FieldError, err.Error())
	}
}
