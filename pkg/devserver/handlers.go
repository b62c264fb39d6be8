package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shaneisley/taskslot/pkg/tasks"
)

// Messages returned by /schedule with a 400 status
const (
	MsgNoTasks         = "Select some tasks to schedule."
	MsgHoursFormat     = "Working hours format is incorrect"
	MsgHoursOrder      = "Select valid working hours (end time must be greater than start time)"
	DefaultTaskMinutes = 30
)

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	Email string `json:"email"`
}

func (s *Server) handleLoadTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Pending())
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userResponse{Email: s.email})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed form data")
		return
	}

	ids, ok := r.PostForm[tasks.KeyTaskID]
	if !ok || len(ids) == 0 {
		writeMessage(w, http.StatusBadRequest, MsgNoTasks)
		return
	}

	hours, err := parseWindow(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	first, last := s.parseDays(r.PostForm.Get(tasks.KeyStartDate), r.PostForm.Get(tasks.KeyEndDate))
	durations := r.PostForm[tasks.KeyTaskDuration]

	s.mu.Lock()
	items := make([]pendingItem, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		task, found := s.findLocked(id)
		if !found || seen[id] {
			s.logger.Debug("task skipped", "task_id", id)
			continue
		}
		seen[id] = true
		duration := ""
		if i < len(durations) {
			duration = durations[i]
		}
		items = append(items, pendingItem{task: task, duration: parseMinutes(duration)})
	}

	placed := place(daysBetween(first, last), hours, items, s.events)
	s.events = append(s.events, placed...)
	s.removeLocked(placed)
	s.mu.Unlock()

	s.logger.Info("tasks scheduled",
		"requested", len(ids),
		"inserted", len(placed),
		"start_date", first.Format(dateLayout),
		"end_date", last.Format(dateLayout))
	writeMessage(w, http.StatusOK, fmt.Sprintf("%d tasks inserted", len(placed)))
}

// parseWindow reads the four working-hours fields. When all are absent the default window applies.
func parseWindow(r *http.Request) (window, error) {
	keys := []string{tasks.KeyStartHour, tasks.KeyStartMin, tasks.KeyEndHour, tasks.KeyEndMin}

	absent := true
	for _, key := range keys {
		if _, ok := r.PostForm[key]; ok {
			absent = false
		}
	}
	if absent {
		return defaultWindow(), nil
	}

	var parts [4]int
	for i, key := range keys {
		value, err := strconv.Atoi(r.PostForm.Get(key))
		if err != nil {
			return window{}, errors.New(MsgHoursFormat)
		}
		parts[i] = value
	}

	w := window{startHour: parts[0], startMin: parts[1], endHour: parts[2], endMin: parts[3]}
	if w.endHour < w.startHour || (w.startHour == w.endHour && w.endMin <= w.startMin) {
		return window{}, errors.New(MsgHoursOrder)
	}
	return w, nil
}

// parseDays falls back to tomorrow when either date is missing or malformed
func (s *Server) parseDays(startDate, endDate string) (time.Time, time.Time) {
	first, startErr := time.ParseInLocation(dateLayout, startDate, s.location)
	last, endErr := time.ParseInLocation(dateLayout, endDate, s.location)
	if startErr != nil || endErr != nil {
		now := s.now().In(s.location)
		tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.location)
		return tomorrow, tomorrow
	}
	if last.Before(first) {
		last = first
	}
	return first, last
}

func parseMinutes(value string) time.Duration {
	minutes, err := strconv.Atoi(value)
	if err != nil || minutes <= 0 {
		minutes = DefaultTaskMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// findLocked must be called with mu held
func (s *Server) findLocked(id string) (tasks.Task, bool) {
	for _, task := range s.pending {
		if task.ID == id {
			return task, true
		}
	}
	return tasks.Task{}, false
}

// removeLocked must be called with mu held
func (s *Server) removeLocked(placed []Event) {
	scheduled := make(map[string]bool, len(placed))
	for _, event := range placed {
		scheduled[event.TaskID] = true
	}

	remaining := s.pending[:0]
	for _, task := range s.pending {
		if !scheduled[task.ID] {
			remaining = append(remaining, task)
		}
	}
	s.pending = remaining
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}
