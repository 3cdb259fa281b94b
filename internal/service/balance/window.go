package balance

import "time"

// Window is an inclusive range of calendar dates.
type Window struct {
	Begin time.Time
	End   time.Time
}

// EffectiveWindow computes the fetch window of a scope. The begin date is the
// later of the requested begin and the checkpoint minus bufferDays, so late
// arriving records near the checkpoint are fetched again. The boolean is false
// when the scope is already caught up and must not be fetched at all.
func EffectiveWindow(begin, end time.Time, checkpoint *time.Time, bufferDays int) (Window, bool) {
	w := Window{Begin: truncateDay(begin), End: truncateDay(end)}
	if checkpoint != nil {
		if resume := truncateDay(*checkpoint).AddDate(0, 0, -bufferDays); resume.After(w.Begin) {
			w.Begin = resume
		}
	}
	return w, !w.Begin.After(w.End)
}

// Split partitions w into consecutive sub-windows of at most stepDays days.
// The last sub-window is clipped to w.End.
func (w Window) Split(stepDays int) []Window {
	if stepDays <= 0 || w.Begin.After(w.End) {
		return nil
	}
	var out []Window
	for current := w.Begin; !current.After(w.End); {
		next := current.AddDate(0, 0, stepDays-1)
		if next.After(w.End) {
			next = w.End
		}
		out = append(out, Window{Begin: current, End: next})
		current = next.AddDate(0, 0, 1)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
