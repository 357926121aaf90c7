package tracker

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"timetracker/internal/report"
)

// dayBar is one bar of the week chart. Tapping it opens that day's breakdown.
type dayBar struct {
	widget.ProgressBar

	date     string
	onTapped func(date string)
}

var _ fyne.Tappable = (*dayBar)(nil)

func newDayBar(day report.DayTotal, longest int64, onTapped func(date string)) *dayBar {
	bar := &dayBar{date: day.Date, onTapped: onTapped}
	bar.ExtendBaseWidget(bar)
	if longest > 0 {
		bar.Max = float64(longest)
	}
	bar.Value = float64(day.TotalSeconds)
	total := day.TotalSeconds
	bar.TextFormatter = func() string { return report.FormatDuration(total) }
	return bar
}

func (bar *dayBar) Tapped(*fyne.PointEvent) {
	if bar.onTapped != nil {
		bar.onTapped(bar.date)
	}
}
