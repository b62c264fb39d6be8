package calendar

import (
	"net/url"
	"strings"
	"sync"
)

const (
	DefaultBaseURL = "https://calendar.google.com/calendar/embed"
	DefaultMode    = "WEEK"
)

// EmbedURL builds the embed address for the given account
func EmbedURL(baseURL, email, mode string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if mode == "" {
		mode = DefaultMode
	}
	return strings.TrimRight(baseURL, "?") + "?src=" + url.QueryEscape(email) + "&mode=" + url.QueryEscape(mode)
}

// Sink receives the frame source whenever it is (re)assigned
type Sink interface {
	SetCalendarSource(src string)
}

// Frame tracks the source of the embedded calendar view
type Frame struct {
	mu      sync.Mutex
	baseURL string
	mode    string
	src     string
	sink    Sink
}

// NewFrame creates an empty frame that pushes sources to sink
func NewFrame(baseURL, mode string, sink Sink) *Frame {
	return &Frame{baseURL: baseURL, mode: mode, sink: sink}
}

// Load points the frame at the calendar of email
func (f *Frame) Load(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.src = EmbedURL(f.baseURL, email, f.mode)
	f.push()
	return f.src
}

// Refresh re-assigns the current source to itself, forcing the view to reload.
// It is a no-op until Load has been called.
func (f *Frame) Refresh() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.src == "" {
		return ""
	}
	f.push()
	return f.src
}

// Source returns the current frame source
func (f *Frame) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src
}

func (f *Frame) push() {
	if f.sink != nil {
		f.sink.SetCalendarSource(f.src)
	}
}
