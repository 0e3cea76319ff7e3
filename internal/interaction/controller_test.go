package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"explog/internal/core"
	applog "explog/internal/log"
	"explog/internal/services"
	"explog/internal/storage/memory"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setup(t *testing.T) (*Controller, *services.ExpenseRepository, *manualClock, *memory.Store) {
	t.Helper()
	clock := &manualClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New()
	repo := services.NewExpenseRepository(store,
		services.WithClock(clock.Now),
		services.WithLogger(applog.Discard()))
	return NewController(repo, 4*time.Second, clock.Now), repo, clock, store
}

func submit(t *testing.T, c *Controller, amount string) core.Expense {
	t.Helper()
	out := c.Handle(context.Background(), Submit{Amount: amount, Category: "food"})
	if out.Err != nil || out.Expense == nil {
		t.Fatalf("Submit(%s) = %+v", amount, out)
	}
	return *out.Expense
}

func TestController_Submit(t *testing.T) {
	c, repo, _, _ := setup(t)
	ctx := context.Background()

	out := c.Handle(ctx, Submit{Amount: "4.20", Note: "tea", Category: "food"})
	if out.Err != nil || !out.Changed || out.Notice != "Expense added" {
		t.Fatalf("Submit outcome = %+v", out)
	}
	if repo.Len() != 1 {
		t.Errorf("Len() = %d, want 1", repo.Len())
	}

	tests := []struct {
		name    string
		ev      Submit
		wantErr error
		notice  string
	}{
		{name: "zero", ev: Submit{Amount: "0"}, wantErr: core.ErrInvalidAmount, notice: "Please enter a valid amount"},
		{name: "garbage", ev: Submit{Amount: "abc"}, wantErr: core.ErrInvalidAmount, notice: "Please enter a valid amount"},
		{name: "category", ev: Submit{Amount: "1", Category: "rent"}, wantErr: core.ErrInvalidCategory, notice: "Please choose a category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Handle(ctx, tt.ev)
			if !errors.Is(out.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", out.Err, tt.wantErr)
			}
			if out.Notice != tt.notice {
				t.Errorf("Notice = %q, want %q", out.Notice, tt.notice)
			}
			if out.Changed {
				t.Error("rejected submit reported a change")
			}
		})
	}
	if repo.Len() != 1 {
		t.Errorf("Len() = %d after rejected submits, want 1", repo.Len())
	}
}

func TestController_ItemLifecycle(t *testing.T) {
	c, _, _, _ := setup(t)
	ctx := context.Background()
	e := submit(t, c, "10")

	steps := []struct {
		ev   Event
		want ItemState
	}{
		{ev: RemovalStarted{ID: e.ID}, want: StatePendingRemoval},
		{ev: RemovalCancelled{ID: e.ID}, want: StatePresent},
		{ev: RemovalStarted{ID: e.ID}, want: StatePendingRemoval},
		{ev: DeleteRequested{ID: e.ID}, want: StateRemoved},
		{ev: UndoRequested{}, want: StatePresent},
	}
	for i, step := range steps {
		if out := c.Handle(ctx, step.ev); out.Err != nil {
			t.Fatalf("step %d (%T) error = %v", i, step.ev, out.Err)
		}
		if got := c.ItemState(e.ID); got != step.want {
			t.Errorf("step %d (%T): state = %s, want %s", i, step.ev, got, step.want)
		}
	}
}

func TestController_DeleteOutcome(t *testing.T) {
	c, _, _, _ := setup(t)
	e := submit(t, c, "10")

	out := c.Handle(context.Background(), DeleteRequested{ID: e.ID})
	if !out.Undoable || out.Notice != "Expense deleted" || out.Expense == nil || out.Expense.ID != e.ID {
		t.Errorf("delete outcome = %+v", out)
	}

	out = c.Handle(context.Background(), DeleteRequested{ID: "nope"})
	if !errors.Is(out.Err, core.ErrNotFound) {
		t.Errorf("delete unknown Err = %v, want ErrNotFound", out.Err)
	}
}

func TestController_UndoAfterWindowIsNoop(t *testing.T) {
	c, repo, clock, _ := setup(t)
	ctx := context.Background()
	e := submit(t, c, "10")
	c.Handle(ctx, DeleteRequested{ID: e.ID})

	clock.Advance(5 * time.Second)
	if c.CanUndo() {
		t.Error("CanUndo() = true after window")
	}
	if out := c.Handle(ctx, UndoRequested{}); out.Changed {
		t.Errorf("late undo changed state: %+v", out)
	}
	if repo.Len() != 0 {
		t.Errorf("Len() = %d, want 0", repo.Len())
	}
	if got := c.ItemState(e.ID); got != StateUnknown {
		t.Errorf("state = %s, want unknown", got)
	}
}

func TestController_UndoWithinWindow(t *testing.T) {
	c, repo, clock, _ := setup(t)
	ctx := context.Background()
	e := submit(t, c, "10")
	c.Handle(ctx, DeleteRequested{ID: e.ID})

	clock.Advance(4 * time.Second)
	out := c.Handle(ctx, UndoRequested{})
	if !out.Changed || out.Notice != "Expense restored" {
		t.Errorf("undo outcome = %+v", out)
	}
	if repo.Len() != 1 {
		t.Errorf("Len() = %d, want 1", repo.Len())
	}
}

func TestController_UndoExpired(t *testing.T) {
	c, repo, _, _ := setup(t)
	ctx := context.Background()
	e := submit(t, c, "10")
	c.Handle(ctx, DeleteRequested{ID: e.ID})
	c.Handle(ctx, UndoExpired{})

	if _, ok := repo.PendingUndo(); ok {
		t.Error("undo slot kept after UndoExpired")
	}
	if out := c.Handle(ctx, UndoRequested{}); out.Changed {
		t.Error("undo after expiry changed state")
	}
}

func TestController_SecondDeleteSupersedesUndo(t *testing.T) {
	c, repo, _, _ := setup(t)
	ctx := context.Background()
	x := submit(t, c, "1")
	y := submit(t, c, "2")

	c.Handle(ctx, DeleteRequested{ID: x.ID})
	c.Handle(ctx, DeleteRequested{ID: y.ID})
	if got := c.ItemState(x.ID); got != StateUnknown {
		t.Errorf("superseded item state = %s, want unknown", got)
	}

	c.Handle(ctx, UndoRequested{})
	list := repo.List()
	if len(list) != 1 || list[0].ID != y.ID {
		t.Errorf("after undo = %+v, want only %s", list, y.ID)
	}
}

func TestController_StorageWarning(t *testing.T) {
	c, repo, _, store := setup(t)
	store.FailWrites(true)

	out := c.Handle(context.Background(), Submit{Amount: "3"})
	if out.Err != nil {
		t.Fatalf("Submit error = %v", out.Err)
	}
	if out.Warning == "" {
		t.Error("expected storage warning")
	}
	if repo.Len() != 1 {
		t.Errorf("Len() = %d, want 1", repo.Len())
	}
}

func TestController_PendingUnknownID(t *testing.T) {
	c, _, _, _ := setup(t)
	out := c.Handle(context.Background(), RemovalStarted{ID: "nope"})
	if !errors.Is(out.Err, core.ErrNotFound) {
		t.Errorf("Err = %v, want ErrNotFound", out.Err)
	}
}
