package medicine

import "time"

// DateISO formats a time as a zero-padded YYYY-MM-DD calendar date.
// All date comparisons in this package are lexicographic on this form.
func DateISO(t time.Time) string {
	return t.Format("2006-01-02")
}

// ActiveOn reports whether a medicine is scheduled on the given date.
// The start date is inclusive; an empty end date means open-ended.
func ActiveOn(m *Medicine, dateISO string) bool {
	if dateISO < m.StartDate {
		return false
	}
	if m.EndDate != "" && dateISO > m.EndDate {
		return false
	}
	return true
}

// DatesBackwards returns the n calendar dates ending at now's date,
// oldest first.
func DatesBackwards(n int, now time.Time) []string {
	if n <= 0 {
		return nil
	}
	dates := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		dates = append(dates, DateISO(now.AddDate(0, 0, -i)))
	}
	return dates
}
