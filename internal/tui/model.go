// Package tui is a terminal front end over the same interaction controller
// the web UI uses.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"explog/internal/core"
	"explog/internal/export"
	"explog/internal/interaction"
	"explog/internal/services"
)

type mode int

const (
	modeList mode = iota
	modeAdd
)

// add form fields, in tab order
const (
	fieldAmount = iota
	fieldNote
	fieldCategory
	fieldCount
)

type undoExpiredMsg struct{ seq int }

type toastClearMsg struct{ seq int }

type row struct {
	header bool
	label  string
	total  string
	e      core.Expense
}

type Model struct {
	ctx       context.Context
	repo      *services.ExpenseRepository
	ctrl      *interaction.Controller
	loc       *time.Location
	clock     func() time.Time
	exportDir string

	mode   mode
	rows   []row
	cursor int

	field    int
	amount   string
	note     string
	category int

	toast     string
	toastUndo bool
	warning   string
	toastSeq  int

	quitting bool
}

type Options struct {
	Location  *time.Location
	Clock     func() time.Time
	ExportDir string
}

func New(ctx context.Context, repo *services.ExpenseRepository, ctrl *interaction.Controller, opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	m := Model{
		ctx:       ctx,
		repo:      repo,
		ctrl:      ctrl,
		loc:       opts.Location,
		clock:     opts.Clock,
		exportDir: opts.ExportDir,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) now() time.Time { return m.clock().In(m.loc) }

func (m *Model) refresh() {
	now := m.now()
	rows := make([]row, 0, len(m.rows))
	for _, g := range core.GroupByDay(m.repo.List(), m.loc) {
		rows = append(rows, row{
			header: true,
			label:  core.FormatDayLabel(g.Key, now),
			total:  g.Total().Display(),
		})
		for _, e := range g.Items {
			rows = append(rows, row{e: e})
		}
	}
	m.rows = rows
	m.clampCursor()
}

// clampCursor keeps the cursor on an item row.
func (m *Model) clampCursor() {
	items := m.itemIndexes()
	if len(items) == 0 {
		m.cursor = 0
		return
	}
	for _, i := range items {
		if i >= m.cursor {
			m.cursor = i
			return
		}
	}
	m.cursor = items[len(items)-1]
}

func (m Model) itemIndexes() []int {
	var out []int
	for i, r := range m.rows {
		if !r.header {
			out = append(out, i)
		}
	}
	return out
}

func (m Model) selected() (core.Expense, bool) {
	if m.cursor < len(m.rows) && !m.rows[m.cursor].header {
		return m.rows[m.cursor].e, true
	}
	return core.Expense{}, false
}

func (m *Model) move(delta int) {
	items := m.itemIndexes()
	for pos, i := range items {
		if i == m.cursor {
			next := pos + delta
			if next >= 0 && next < len(items) {
				m.cursor = items[next]
			}
			return
		}
	}
}

// show sets the toast and returns a command that clears it.
func (m *Model) show(out interaction.Outcome, undo bool) tea.Cmd {
	m.toastSeq++
	m.toast = out.Notice
	m.toastUndo = undo
	m.warning = out.Warning
	seq := m.toastSeq
	if undo {
		return tea.Tick(m.ctrl.UndoWindow(), func(time.Time) tea.Msg { return undoExpiredMsg{seq: seq} })
	}
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return toastClearMsg{seq: seq} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case undoExpiredMsg:
		if msg.seq == m.toastSeq {
			m.ctrl.Handle(m.ctx, interaction.UndoExpired{})
			m.toast, m.toastUndo = "", false
		}
		return m, nil
	case toastClearMsg:
		if msg.seq == m.toastSeq {
			m.toast, m.warning = "", ""
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.mode == modeAdd {
			return m.updateAdd(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "a":
		m.mode = modeAdd
		m.field = fieldAmount
		m.amount, m.note, m.category = "", "", 0
	case "d", "x", "delete":
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		out := m.ctrl.Handle(m.ctx, interaction.DeleteRequested{ID: e.ID})
		if out.Err != nil {
			return m, nil
		}
		m.refresh()
		return m, m.show(out, true)
	case "u":
		out := m.ctrl.Handle(m.ctx, interaction.UndoRequested{})
		if !out.Changed {
			return m, nil
		}
		m.refresh()
		return m, m.show(out, false)
	case "e":
		path, err := export.WriteFile(m.exportDir, m.repo.List(), m.now())
		out := interaction.Outcome{Notice: "Exported to " + path}
		if errors.Is(err, export.ErrNothingToExport) {
			out.Notice = "No expenses to export"
		} else if err != nil {
			out.Notice = "Export failed"
			out.Warning = err.Error()
		}
		return m, m.show(out, false)
	}
	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cats := core.Categories()
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "tab", "down":
		m.field = (m.field + 1) % fieldCount
		return m, nil
	case "shift+tab", "up":
		m.field = (m.field + fieldCount - 1) % fieldCount
		return m, nil
	case "left":
		if m.field == fieldCategory {
			m.category = (m.category + len(cats) - 1) % len(cats)
		}
		return m, nil
	case "right", " ":
		if m.field == fieldCategory {
			m.category = (m.category + 1) % len(cats)
			return m, nil
		}
	case "backspace":
		switch m.field {
		case fieldAmount:
			m.amount = trimLast(m.amount)
		case fieldNote:
			m.note = trimLast(m.note)
		}
		return m, nil
	case "enter":
		out := m.ctrl.Handle(m.ctx, interaction.Submit{
			Amount:   m.amount,
			Note:     m.note,
			Category: string(cats[m.category]),
		})
		if out.Err != nil {
			m.field = fieldAmount
			return m, m.show(out, false)
		}
		m.mode = modeList
		m.refresh()
		m.cursor = 0
		m.clampCursor()
		return m, m.show(out, false)
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		s := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			s = " "
		}
		switch m.field {
		case fieldAmount:
			m.amount += s
		case fieldNote:
			if len([]rune(m.note)) < 200 {
				m.note += s
			}
		}
	}
	return m, nil
}

func trimLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	now := m.now()
	var b strings.Builder

	b.WriteString(titleStyle.Render(core.MonthLabel(now)))
	b.WriteString("\n")
	b.WriteString(totalStyle.Render(core.MonthToDateTotal(m.repo.List(), now).Display()))
	b.WriteString("\n")

	if m.mode == modeAdd {
		b.WriteString(m.viewAdd())
	} else {
		b.WriteString(m.viewList())
	}

	if m.toast != "" {
		msg := m.toast
		if m.toastUndo {
			msg += "  [u] undo"
		}
		b.WriteString("\n")
		b.WriteString(toastStyle.Render(msg))
	}
	if m.warning != "" {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(m.warning))
	}

	help := "[a] add  [d] delete  [u] undo  [e] export  [q] quit"
	if m.mode == modeAdd {
		help = "[tab] next field  [←/→] category  [enter] save  [esc] cancel"
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m Model) viewList() string {
	if len(m.rows) == 0 {
		return dayStyle.Render("No expenses yet")
	}
	var b strings.Builder
	for i, r := range m.rows {
		if r.header {
			b.WriteString(dayStyle.Render(fmt.Sprintf("%-28s %10s", r.label, r.total)))
			b.WriteString("\n")
			continue
		}
		line := fmt.Sprintf("%s %-20s %s %10s",
			r.e.Category.Emoji(),
			truncate(r.e.Note, 20),
			r.e.Time(m.loc).Format("15:04"),
			amountStyle.Render(r.e.Amount.Display()))
		switch {
		case m.ctrl.ItemState(r.e.ID) == interaction.StatePendingRemoval:
			line = pendingStyle.Render(line)
		case i == m.cursor:
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewAdd() string {
	cats := core.Categories()
	cat := cats[m.category]
	fields := []string{
		"Amount:   " + m.amount,
		"Note:     " + m.note,
		"Category: " + cat.Emoji() + " " + cat.Label(),
	}
	for i := range fields {
		if i == m.field {
			fields[i] = "> " + fields[i]
		} else {
			fields[i] = "  " + fields[i]
		}
	}
	return promptStyle.Render(strings.Join(fields, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
