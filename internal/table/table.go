// Package table renders typed rows as aligned terminal text or CSV.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"fatura/internal/core"
)

// Kind selects how a column value is formatted. The set is closed.
type Kind int

const (
	Text Kind = iota
	Currency
	Date
	Badge
	Action
)

type Column[T any] struct {
	Header string
	Value  func(T) any
	Kind   Kind
}

type Table[T any] struct {
	columns    []Column[T]
	rows       []T
	totalCol   int
	totalLabel string
}

func New[T any](columns ...Column[T]) *Table[T] {
	return &Table[T]{columns: columns, totalCol: -1}
}

// WithTotal appends a row with the sum of column col, which must be a
// Currency column holding core.Money values.
func (t *Table[T]) WithTotal(col int, label string) *Table[T] {
	if col >= 0 && col < len(t.columns) && t.columns[col].Kind == Currency {
		t.totalCol = col
		t.totalLabel = label
	}
	return t
}

func (t *Table[T]) Append(rows ...T) *Table[T] {
	t.rows = append(t.rows, rows...)
	return t
}

func (t *Table[T]) Len() int { return len(t.rows) }

// Total sums the total column; ok is false when no total was requested.
func (t *Table[T]) Total() (core.Money, bool) {
	if t.totalCol < 0 {
		return core.Money{}, false
	}
	var sum core.Money
	for _, row := range t.rows {
		if m, ok := money(t.columns[t.totalCol].Value(row)); ok {
			sum = sum.Add(m)
		}
	}
	return sum, true
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	totalStyle  = lipgloss.NewStyle().Bold(true)
	actionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

	badgeColors = map[string]lipgloss.Color{
		string(core.StatusOpen):    lipgloss.Color("#4ECDC4"),
		string(core.StatusClosed):  lipgloss.Color("#FFE66D"),
		string(core.StatusPending): lipgloss.Color("#FF6B6B"),
		string(core.StatusPaid):    lipgloss.Color("#95E1D3"),
	}
)

// RenderText writes space-aligned columns. Styled output adds terminal
// colors; widths are measured without escape codes.
func (t *Table[T]) RenderText(w io.Writer, styled bool) error {
	grid := make([][]string, 0, len(t.rows)+2)
	header := make([]string, len(t.columns))
	for i, c := range t.columns {
		header[i] = c.Header
		if styled {
			header[i] = headerStyle.Render(c.Header)
		}
	}
	grid = append(grid, header)

	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, c := range t.columns {
			cells[i] = formatText(c.Kind, c.Value(row), styled)
		}
		grid = append(grid, cells)
	}
	if total, ok := t.Total(); ok {
		grid = append(grid, t.totalRow(core.FormatCurrency(total), styled))
	}

	widths := make([]int, len(t.columns))
	for _, cells := range grid {
		for i, cell := range cells {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for _, cells := range grid {
		for i, cell := range cells {
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if t.columns[i].Kind == Currency {
				b.WriteString(pad + cell)
			} else {
				b.WriteString(cell)
				if i < len(cells)-1 {
					b.WriteString(pad)
				}
			}
			if i < len(cells)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// totalRow puts the label in the first non-total column.
func (t *Table[T]) totalRow(value string, styled bool) []string {
	cells := make([]string, len(t.columns))
	labelAt := 0
	if t.totalCol == 0 && len(t.columns) > 1 {
		labelAt = 1
	}
	cells[labelAt] = t.totalLabel
	cells[t.totalCol] = value
	if styled {
		cells[labelAt] = totalStyle.Render(cells[labelAt])
		cells[t.totalCol] = totalStyle.Render(value)
	}
	return cells
}

// RenderCSV writes machine-readable values: plain decimals for money, ISO
// dates. Action columns are left out.
func (t *Table[T]) RenderCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	var keep []int
	header := make([]string, 0, len(t.columns))
	for i, c := range t.columns {
		if c.Kind == Action {
			continue
		}
		keep = append(keep, i)
		header = append(header, c.Header)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range t.rows {
		rec := make([]string, 0, len(keep))
		for _, i := range keep {
			rec = append(rec, formatCSV(t.columns[i].Kind, t.columns[i].Value(row)))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	if total, ok := t.Total(); ok {
		rec := make([]string, len(keep))
		labelled := false
		for j, i := range keep {
			switch {
			case i == t.totalCol:
				rec[j] = total.String()
			case !labelled:
				rec[j] = t.totalLabel
				labelled = true
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v any) (core.Money, bool) {
	switch m := v.(type) {
	case core.Money:
		return m, true
	case *core.Money:
		if m != nil {
			return *m, true
		}
	}
	return core.Money{}, false
}

func formatText(kind Kind, v any, styled bool) string {
	switch kind {
	case Currency:
		if m, ok := money(v); ok {
			return core.FormatCurrency(m)
		}
		return "-"
	case Date:
		return formatDate(v)
	case Badge:
		label := strings.ToUpper(fmt.Sprint(v))
		if !styled {
			return "[" + label + "]"
		}
		style := lipgloss.NewStyle().Bold(true)
		if c, ok := badgeColors[label]; ok {
			style = style.Foreground(c)
		}
		return style.Render(label)
	case Action:
		if styled {
			return actionStyle.Render(fmt.Sprint(v))
		}
		return fmt.Sprint(v)
	default:
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
}

func formatCSV(kind Kind, v any) string {
	switch kind {
	case Currency:
		if m, ok := money(v); ok {
			return m.String()
		}
		return ""
	case Date:
		return formatDate(v)
	case Badge:
		return strings.ToUpper(fmt.Sprint(v))
	default:
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
}

func formatDate(v any) string {
	switch d := v.(type) {
	case core.Date:
		return d.String()
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format("2006-01-02")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
