package daily

import "time"

// WindowStarts produces the ordered sequence of daily windows between the
// global start date and the most recently fully elapsed window relative to
// now. The first window starts at the anchor hour on the start date; each
// subsequent window starts 24 hours later. A window whose end would fall
// after the current instant is never emitted: if now is before today's anchor
// boundary, the last window is anchored two calendar days back, otherwise one.
func WindowStarts(startDate time.Time, anchorHour int, tz *time.Location, now time.Time) []Window {
	first := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), anchorHour, 0, 0, 0, tz)

	n := now.In(tz)
	boundary := time.Date(n.Year(), n.Month(), n.Day(), anchorHour, 0, 0, 0, tz)
	if n.Before(boundary) {
		boundary = boundary.Add(-24 * time.Hour)
	}
	last := boundary.Add(-24 * time.Hour)

	var windows []Window
	for t := first; !t.After(last); t = t.Add(24 * time.Hour) {
		windows = append(windows, Window{Start: t})
	}
	return windows
}
