package http

import (
	"time"

	"explog/internal/core"
)

type categoryOption struct {
	Value string
	Label string
	Emoji string
}

type itemView struct {
	ID     string
	Note   string
	Time   string
	Amount string
	Emoji  string
}

type groupView struct {
	Label string
	Total string
	Items []itemView
}

type pageData struct {
	MonthLabel string
	MonthTotal string
	Groups     []groupView
	Categories []categoryOption
	UndoMillis int64
}

var categoryOptions = func() []categoryOption {
	cats := core.Categories()
	out := make([]categoryOption, len(cats))
	for i, c := range cats {
		out[i] = categoryOption{Value: string(c), Label: c.Label(), Emoji: c.Emoji()}
	}
	return out
}()

// buildPage derives everything the templates show from the current
// collection. Nothing is cached; the collection is small.
func buildPage(records []core.Expense, now time.Time, undoWindow time.Duration) pageData {
	loc := now.Location()
	groups := core.GroupByDay(records, loc)

	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		gv := groupView{
			Label: core.FormatDayLabel(g.Key, now),
			Total: g.Total().Display(),
			Items: make([]itemView, 0, len(g.Items)),
		}
		for _, e := range g.Items {
			gv.Items = append(gv.Items, itemView{
				ID:     e.ID,
				Note:   e.Note,
				Time:   e.Time(loc).Format("15:04"),
				Amount: e.Amount.Display(),
				Emoji:  e.Category.Emoji(),
			})
		}
		views = append(views, gv)
	}

	return pageData{
		MonthLabel: core.MonthLabel(now),
		MonthTotal: core.MonthToDateTotal(records, now).Display(),
		Groups:     views,
		Categories: categoryOptions,
		UndoMillis: undoWindow.Milliseconds(),
	}
}
