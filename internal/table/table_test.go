package table

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/core"
)

type charge struct {
	date   core.Date
	desc   string
	status core.InvoiceStatus
	value  core.Money
	id     int
}

func chargesTable() *Table[charge] {
	return New(
		Column[charge]{Header: "Data", Kind: Date, Value: func(c charge) any { return c.date }},
		Column[charge]{Header: "Descrição", Kind: Text, Value: func(c charge) any { return c.desc }},
		Column[charge]{Header: "Status", Kind: Badge, Value: func(c charge) any { return c.status }},
		Column[charge]{Header: "Valor", Kind: Currency, Value: func(c charge) any { return c.value }},
		Column[charge]{Header: "", Kind: Action, Value: func(c charge) any { return "fatura purchase show " + string(rune('0'+c.id)) }},
	).Append(
		charge{core.NewDate(2025, 10, 12), "Café", core.StatusPaid, core.Money{Cents: 1050}, 1},
		charge{core.NewDate(2025, 10, 13), "Notebook", core.StatusOpen, core.Money{Cents: 120000}, 2},
	)
}

func TestRenderText(t *testing.T) {
	tbl := chargesTable().WithTotal(3, "Total")

	var buf bytes.Buffer
	require.NoError(t, tbl.RenderText(&buf, false))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "Data        Descrição  Status"))
	assert.Contains(t, lines[1], "[PAID]")
	assert.Contains(t, lines[1], "   R$ 10,50  fatura purchase show 1")
	assert.Contains(t, lines[2], "R$ 1.200,00")
	assert.True(t, strings.HasPrefix(lines[3], "Total"))
	assert.Contains(t, lines[3], "R$ 1.210,50")

	// the currency column ends at the same offset on every row
	end := func(line, cell string) int { return utf8.RuneCountInString(line[:strings.Index(line, cell)+len(cell)]) }
	assert.Equal(t, end(lines[0], "Valor"), end(lines[1], "R$ 10,50"))
	assert.Equal(t, end(lines[0], "Valor"), end(lines[3], "R$ 1.210,50"))
}

func TestRenderCSV(t *testing.T) {
	tbl := chargesTable().WithTotal(3, "Total")

	var buf bytes.Buffer
	require.NoError(t, tbl.RenderCSV(&buf))
	assert.Equal(t, strings.Join([]string{
		"Data,Descrição,Status,Valor",
		"2025-10-12,Café,PAID,10.50",
		"2025-10-13,Notebook,OPEN,1200.00",
		"Total,,,1210.50",
		"",
	}, "\n"), buf.String())
}

func TestWithTotal_IgnoresNonCurrencyColumn(t *testing.T) {
	tbl := chargesTable().WithTotal(1, "Total")
	_, ok := tbl.Total()
	assert.False(t, ok)

	total, ok := chargesTable().WithTotal(3, "Total").Total()
	require.True(t, ok)
	assert.Equal(t, int64(121050), total.Cents)
}

func TestFormatting(t *testing.T) {
	estimate := core.Money{Cents: 500}
	var none *core.Money

	assert.Equal(t, "R$ 5,00", formatText(Currency, &estimate, false))
	assert.Equal(t, "-", formatText(Currency, none, false))
	assert.Equal(t, "", formatCSV(Currency, none))
	assert.Equal(t, "", formatDate(core.Date{}))
	assert.Equal(t, "[PENDING]", formatText(Badge, "pending", false))
	assert.Contains(t, formatText(Badge, core.StatusPaid, true), "PAID")
}
