package core

import "time"

const dayKeyLayout = "2006-01-02"

// DayKey is a local calendar date in YYYY-MM-DD form.
type DayKey string

// DayGroup holds the records of one calendar day in input order.
type DayGroup struct {
	Key   DayKey
	Items []Expense
}

// Total is the sum of the group's amounts.
func (g DayGroup) Total() Money {
	return DayTotal(g.Items)
}

// DayKeyOf returns the local calendar date of an epoch-millisecond timestamp.
func DayKeyOf(ts int64, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.Local
	}
	return DayKey(time.UnixMilli(ts).In(loc).Format(dayKeyLayout))
}

// Date parses the key back into midnight of that day in loc.
func (k DayKey) Date(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dayKeyLayout, string(k), loc)
}

// GroupByDay buckets records by local day. Groups keep first-seen order and
// records keep their relative order; nothing is sorted.
func GroupByDay(records []Expense, loc *time.Location) []DayGroup {
	var groups []DayGroup
	index := make(map[DayKey]int)
	for _, e := range records {
		key := DayKeyOf(e.Timestamp, loc)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Key: key})
		}
		groups[i].Items = append(groups[i].Items, e)
	}
	return groups
}

// DayTotal sums the amounts of records.
func DayTotal(records []Expense) Money {
	var total Money
	for _, e := range records {
		total = total.Add(e.Amount)
	}
	return total
}

// MonthToDateTotal sums records falling in the same local year and month as
// ref, using ref's location.
func MonthToDateTotal(records []Expense, ref time.Time) Money {
	year, month, _ := ref.Date()
	var total Money
	for _, e := range records {
		y, m, _ := e.Time(ref.Location()).Date()
		if y == year && m == month {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// FormatDayLabel renders a group header: "Today", "Yesterday", or "Mon, Jan 2".
func FormatDayLabel(key DayKey, ref time.Time) string {
	d, err := key.Date(ref.Location())
	if err != nil {
		return string(key)
	}
	if sameDay(d, ref) {
		return "Today"
	}
	if sameDay(d, ref.AddDate(0, 0, -1)) {
		return "Yesterday"
	}
	return d.Format("Mon, Jan 2")
}

// MonthLabel renders the summary header, e.g. "October 2026".
func MonthLabel(ref time.Time) string {
	return ref.Format("January 2006")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
