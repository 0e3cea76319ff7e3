package core

import (
	"testing"
	"time"
)

var rome = mustLoad("Europe/Rome")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}

func at(y int, m time.Month, d, hh, mm int, loc *time.Location) int64 {
	return time.Date(y, m, d, hh, mm, 0, 0, loc).UnixMilli()
}

func TestGroupByDayPreservesFirstSeenOrder(t *testing.T) {
	records := []Expense{
		{ID: "a", Amount: Money{Cents: 100}, Timestamp: at(2026, 1, 2, 10, 0, time.UTC)},
		{ID: "b", Amount: Money{Cents: 200}, Timestamp: at(2026, 1, 1, 9, 0, time.UTC)},
		{ID: "c", Amount: Money{Cents: 300}, Timestamp: at(2026, 1, 2, 8, 0, time.UTC)},
	}
	groups := GroupByDay(records, time.UTC)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Key != "2026-01-02" || groups[1].Key != "2026-01-01" {
		t.Fatalf("unexpected group order: %s, %s", groups[0].Key, groups[1].Key)
	}
	if len(groups[0].Items) != 2 || groups[0].Items[0].ID != "a" || groups[0].Items[1].ID != "c" {
		t.Fatalf("unexpected Jan 2 items: %+v", groups[0].Items)
	}
	if len(groups[1].Items) != 1 || groups[1].Items[0].ID != "b" {
		t.Fatalf("unexpected Jan 1 items: %+v", groups[1].Items)
	}
	if got := groups[0].Total().Cents; got != 400 {
		t.Fatalf("Jan 2 total = %d", got)
	}
}

func TestGroupByDayDoesNotSort(t *testing.T) {
	// An older day seen first stays first.
	records := []Expense{
		{ID: "old", Timestamp: at(2025, 12, 30, 12, 0, time.UTC)},
		{ID: "new", Timestamp: at(2026, 1, 5, 12, 0, time.UTC)},
	}
	groups := GroupByDay(records, time.UTC)
	if groups[0].Key != "2025-12-30" {
		t.Fatalf("expected first-seen day first, got %s", groups[0].Key)
	}
}

func TestGroupByDayUsesLocalCalendar(t *testing.T) {
	// 23:30 UTC on Jan 1 is already Jan 2 in Rome.
	ts := at(2026, 1, 1, 23, 30, time.UTC)
	if got := DayKeyOf(ts, rome); got != "2026-01-02" {
		t.Fatalf("DayKeyOf in Rome = %s", got)
	}
	if got := DayKeyOf(ts, time.UTC); got != "2026-01-01" {
		t.Fatalf("DayKeyOf in UTC = %s", got)
	}
}

func TestDayTotalEmpty(t *testing.T) {
	if got := DayTotal(nil); got.Cents != 0 {
		t.Fatalf("expected zero, got %d", got.Cents)
	}
}

func TestMonthToDateTotalExcludesOtherMonths(t *testing.T) {
	ref := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	records := []Expense{
		{Amount: Money{Cents: 1000}, Timestamp: at(2026, 3, 15, 9, 0, time.UTC)},
		{Amount: Money{Cents: 250}, Timestamp: at(2026, 3, 1, 0, 0, time.UTC)},
		// Same day-of-month, previous month.
		{Amount: Money{Cents: 5000}, Timestamp: at(2026, 2, 15, 9, 0, time.UTC)},
		// Same month, previous year.
		{Amount: Money{Cents: 7000}, Timestamp: at(2025, 3, 15, 9, 0, time.UTC)},
	}
	if got := MonthToDateTotal(records, ref); got.Cents != 1250 {
		t.Fatalf("month total = %d, want 1250", got.Cents)
	}
}

func TestFormatDayLabel(t *testing.T) {
	ref := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		key  DayKey
		want string
	}{
		{"2026-03-01", "Today"},
		{"2026-02-28", "Yesterday"},
		{"2026-02-27", "Fri, Feb 27"},
		{"2025-03-01", "Sat, Mar 1"},
		{"garbage", "garbage"},
	}
	for _, tc := range cases {
		if got := FormatDayLabel(tc.key, ref); got != tc.want {
			t.Errorf("FormatDayLabel(%s) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)); got != "October 2026" {
		t.Fatalf("MonthLabel = %q", got)
	}
}
