package core

import (
	"fmt"
	"time"
)

// Cycle is one monthly billing window [Start, End) anchored on a fixed
// day of the month. Both bounds are midnight UTC.
type Cycle struct {
	Start    time.Time
	End      time.Time
	StartDay int
}

// CycleFor returns the billing cycle that contains date for a card whose
// billing period starts on startDay.
//
// A date before the start day belongs to the cycle opened last month; a date
// on or after it opens the current one. When a month is shorter than
// startDay the anchor is clamped to the month's last day.
func CycleFor(date time.Time, startDay int) (Cycle, error) {
	if !validDay(startDay) {
		return Cycle{}, fmt.Errorf("%w: billing start day %d", ErrInvalidDay, startDay)
	}
	y, m, d := date.Date()
	current := monthAnchor(y, m, 0, startDay)
	if d < current.Day() {
		return Cycle{Start: monthAnchor(y, m, -1, startDay), End: current, StartDay: startDay}, nil
	}
	return Cycle{Start: current, End: monthAnchor(y, m, 1, startDay), StartDay: startDay}, nil
}

// Advance returns the cycle k months after c. Anchors are recomputed from
// StartDay, so a clamped February never shifts the following months.
func (c Cycle) Advance(k int) Cycle {
	// Start always lies in its anchor month, clamped or not.
	y, m, _ := c.Start.Date()
	return Cycle{Start: monthAnchor(y, m, k, c.StartDay), End: monthAnchor(y, m, k+1, c.StartDay), StartDay: c.StartDay}
}

// Next is Advance(1).
func (c Cycle) Next() Cycle {
	return c.Advance(1)
}

// Contains reports whether t's calendar day falls inside the cycle.
func (c Cycle) Contains(t time.Time) bool {
	day := DateOf(t).Time
	return !day.Before(c.Start) && day.Before(c.End)
}

// Key identifies the cycle on a card, e.g. "2025-10-10".
func (c Cycle) Key() string {
	return c.Start.Format("2006-01-02")
}

// DueDate is the first dueDay on or after the cycle's end.
func (c Cycle) DueDate(dueDay int) Date {
	y, m, _ := c.End.Date()
	due := monthAnchor(y, m, 0, dueDay)
	if due.Before(c.End) {
		due = monthAnchor(y, m, 1, dueDay)
	}
	return Date{Time: due}
}

func (c Cycle) String() string {
	return fmt.Sprintf("[%s, %s)", c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
}

// AssignInstallments returns the cycle of every installment of a purchase:
// installment k lands k-1 cycles after the one containing purchaseDate.
func AssignInstallments(purchaseDate time.Time, startDay, count int) ([]Cycle, error) {
	if count <= 0 {
		return nil, ErrInvalidInstallmentCount
	}
	first, err := CycleFor(purchaseDate, startDay)
	if err != nil {
		return nil, err
	}
	cycles := make([]Cycle, count)
	for k := range cycles {
		cycles[k] = first.Advance(k)
	}
	return cycles, nil
}

// monthAnchor returns day in the month offset months away from (year, month),
// clamped to that month's length.
func monthAnchor(year int, month time.Month, offset, day int) time.Time {
	first := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
