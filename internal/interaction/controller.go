// Package interaction turns user gestures into repository mutations.
//
// Every input modality (swipe, long-press, delete button, TUI key) is reduced
// to the same small set of events so that deletion and undo behave the same
// way everywhere.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"explog/internal/core"
	"explog/internal/services"
)

type (
	// Event is anything Handle accepts.
	Event interface{ isEvent() }

	Submit struct {
		Amount   string
		Note     string
		Category string
	}

	// RemovalStarted marks an item as pending removal while a gesture is in
	// progress (swipe past threshold, long-press timer running).
	RemovalStarted struct{ ID string }

	// RemovalCancelled returns a pending item to present.
	RemovalCancelled struct{ ID string }

	DeleteRequested struct{ ID string }

	UndoRequested struct{}

	// UndoExpired is sent when the undo affordance is dismissed.
	UndoExpired struct{}
)

func (Submit) isEvent()           {}
func (RemovalStarted) isEvent()   {}
func (RemovalCancelled) isEvent() {}
func (DeleteRequested) isEvent()  {}
func (UndoRequested) isEvent()    {}
func (UndoExpired) isEvent()      {}

// Outcome is what the view shows after an event.
type Outcome struct {
	Notice   string
	Warning  string
	Undoable bool
	Changed  bool
	Expense  *core.Expense
	Err      error
}

// ItemState is the lifecycle position of one record.
type ItemState int

const (
	StateUnknown ItemState = iota
	StatePresent
	StatePendingRemoval
	StateRemoved
)

func (s ItemState) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StatePendingRemoval:
		return "pending-removal"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

const storageWarning = "Changes could not be saved on this device"

type Controller struct {
	repo   *services.ExpenseRepository
	window time.Duration
	clock  func() time.Time

	mu           sync.Mutex
	pending      map[string]bool
	undoDeadline time.Time
}

func NewController(repo *services.ExpenseRepository, window time.Duration, clock func() time.Time) *Controller {
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		repo:    repo,
		window:  window,
		clock:   clock,
		pending: make(map[string]bool),
	}
}

// UndoWindow is how long a removal stays undoable.
func (c *Controller) UndoWindow() time.Duration {
	return c.window
}

func (c *Controller) Handle(ctx context.Context, ev Event) Outcome {
	switch ev := ev.(type) {
	case Submit:
		return c.submit(ctx, ev)
	case RemovalStarted:
		return c.setPending(ev.ID, true)
	case RemovalCancelled:
		return c.setPending(ev.ID, false)
	case DeleteRequested:
		return c.delete(ctx, ev.ID)
	case UndoRequested:
		return c.undo(ctx)
	case UndoExpired:
		c.repo.DiscardUndo()
		return Outcome{}
	default:
		return Outcome{Err: fmt.Errorf("unhandled event %T", ev)}
	}
}

func (c *Controller) submit(ctx context.Context, ev Submit) Outcome {
	e, err := c.repo.AddInput(ctx, ev.Amount, ev.Note, ev.Category)
	if err != nil {
		return Outcome{Err: err, Notice: submitErrorNotice(err)}
	}
	out := Outcome{Notice: "Expense added", Changed: true, Expense: &e}
	c.withStorageWarning(&out)
	return out
}

func submitErrorNotice(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid amount"
	case errors.Is(err, core.ErrInvalidCategory):
		return "Please choose a category"
	default:
		return "Could not add expense"
	}
}

func (c *Controller) setPending(id string, pending bool) Outcome {
	if _, ok := c.repo.Get(id); !ok {
		return Outcome{Err: fmt.Errorf("%s: %w", id, core.ErrNotFound)}
	}
	c.mu.Lock()
	if pending {
		c.pending[id] = true
	} else {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return Outcome{}
}

func (c *Controller) delete(ctx context.Context, id string) Outcome {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()

	entry, err := c.repo.Remove(ctx, id)
	if err != nil {
		return Outcome{Err: err}
	}

	c.mu.Lock()
	c.undoDeadline = c.clock().Add(c.window)
	c.mu.Unlock()

	out := Outcome{Notice: "Expense deleted", Undoable: true, Changed: true, Expense: &entry.Expense}
	c.withStorageWarning(&out)
	return out
}

func (c *Controller) undo(ctx context.Context) Outcome {
	c.mu.Lock()
	expired := c.clock().After(c.undoDeadline)
	c.mu.Unlock()

	if expired {
		c.repo.DiscardUndo()
		return Outcome{}
	}
	if !c.repo.UndoLastRemoval(ctx) {
		return Outcome{}
	}
	out := Outcome{Notice: "Expense restored", Changed: true}
	c.withStorageWarning(&out)
	return out
}

// ItemState reports where id is in its lifecycle. A removed record is only
// StateRemoved while it is still the undo target within the window.
func (c *Controller) ItemState(id string) ItemState {
	if _, ok := c.repo.Get(id); ok {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pending[id] {
			return StatePendingRemoval
		}
		return StatePresent
	}
	if c.CanUndo() {
		if entry, ok := c.repo.PendingUndo(); ok && entry.Expense.ID == id {
			return StateRemoved
		}
	}
	return StateUnknown
}

// CanUndo reports whether an undo would currently succeed.
func (c *Controller) CanUndo() bool {
	if _, ok := c.repo.PendingUndo(); !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.clock().After(c.undoDeadline)
}

func (c *Controller) withStorageWarning(out *Outcome) {
	if c.repo.PersistErr() != nil {
		out.Warning = storageWarning
	}
}
