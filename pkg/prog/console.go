package prog

import (
	"time"

	"github.com/fatih/color"
	pw "github.com/jedib0t/go-pretty/v6/progress"
)

// NewConsole returns a console progress writer for operator-side
// visibility of active transfers.
func NewConsole() pw.Writer {
	w := pw.NewWriter()
	w.SetAutoStop(false)
	w.SetTrackerLength(25)
	w.SetUpdateFrequency(250 * time.Millisecond)
	w.SetTrackerPosition(pw.PositionRight)
	w.Style().Visibility.TrackerOverall = true
	w.Style().Visibility.Speed = true
	w.Style().Visibility.Value = true
	return w
}

// AppendTracker registers one transfer with the console writer.
func AppendTracker(w pw.Writer, message string, total int64) *pw.Tracker {
	t := &pw.Tracker{
		Message: message,
		Total:   total,
		Units:   pw.UnitsBytes,
	}
	w.AppendTracker(t)
	return t
}

// Fail logs a red error line against the writer and marks the tracker.
func Fail(w pw.Writer, t *pw.Tracker, format string, args ...any) {
	w.Log(color.RedString(format, args...))
	if t != nil {
		t.MarkAsErrored()
	}
}
