package devserver

import (
	"time"

	"github.com/shaneisley/taskslot/pkg/tasks"
)

const (
	dateLayout = "2006-01-02"
	// maxDays bounds how far a single request may reach
	maxDays = 31
)

// Event is a calendar entry created for a scheduled task
type Event struct {
	TaskID string
	Title  string
	Notes  string
	Start  time.Time
	End    time.Time
}

type window struct {
	startHour, startMin int
	endHour, endMin     int
}

func defaultWindow() window {
	return window{startHour: 9, endHour: 18}
}

func (w window) on(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), w.startHour, w.startMin, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), w.endHour, w.endMin, 0, 0, day.Location())
	return start, end
}

type pendingItem struct {
	task     tasks.Task
	duration time.Duration
}

func daysBetween(first, last time.Time) []time.Time {
	var days []time.Time
	for day := first; !day.After(last) && len(days) < maxDays; day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// place puts items into the free time of each day's window, in request order.
// An item that does not fit on a day moves on to the next one; items left over are not placed.
func place(days []time.Time, hours window, items []pendingItem, busy []Event) []Event {
	occupied := append([]Event(nil), busy...)

	var placed []Event
	queue := items
	for _, day := range days {
		dayStart, dayEnd := hours.on(day)
		cursor := dayStart

		for len(queue) > 0 {
			item := queue[0]
			start := nextFree(cursor, item.duration, occupied)
			end := start.Add(item.duration)
			if end.After(dayEnd) {
				break
			}

			event := Event{TaskID: item.task.ID, Title: item.task.Title, Notes: item.task.Notes, Start: start, End: end}
			placed = append(placed, event)
			occupied = append(occupied, event)
			cursor = end
			queue = queue[1:]
		}
		if len(queue) == 0 {
			break
		}
	}
	return placed
}

// nextFree returns the earliest start at or after from where d fits between busy events
func nextFree(from time.Time, d time.Duration, busy []Event) time.Time {
	start := from
	for {
		moved := false
		for _, event := range busy {
			if start.Before(event.End) && event.Start.Before(start.Add(d)) {
				start = event.End
				moved = true
			}
		}
		if !moved {
			return start
		}
	}
}
