// Package export serializes the expense collection to CSV.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"explog/internal/core"
)

const Header = "Date,Time,Category,Note,Amount"

var ErrNothingToExport = errors.New("no expenses to export")

// WriteCSV writes records in the given order, one row each, prefixed by the
// UTF-8 byte order mark. Rows are separated by "\n" with no trailing newline.
// Notes are always quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, records []core.Expense, loc *time.Location) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}
	if loc == nil {
		loc = time.Local
	}

	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	bw := bufio.NewWriter(tw)

	bw.WriteString(Header)
	for _, e := range records {
		bw.WriteByte('\n')
		bw.WriteString(Row(e, loc))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Row formats one record without a line terminator.
func Row(e core.Expense, loc *time.Location) string {
	t := e.Time(loc)
	return strings.Join([]string{
		t.Format(time.DateOnly),
		t.Format("15:04"),
		e.Category.Label(),
		quote(e.Note),
		e.Amount.String(),
	}, ",")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Filename is the export file name for the day of now.
func Filename(now time.Time) string {
	return "explog_" + now.Format(time.DateOnly) + ".csv"
}

var createFile = os.Create

// WriteFile writes the export into dir and returns the created path.
func WriteFile(dir string, records []core.Expense, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", ErrNothingToExport
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, Filename(now))
	f, err := createFile(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, records, now.Location()); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
