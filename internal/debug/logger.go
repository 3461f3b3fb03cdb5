package debug

import (
	"fmt"
	"sync"
)

// Logger is the centralized logging system: a fixed-size ring of entries with
// per-component enable flags. Components are disabled by default so the hot
// emulation path pays only a map lookup when logging is off.
type Logger struct {
	mu         sync.RWMutex
	entries    []LogEntry
	maxEntries int
	writeIndex int
	entryCount int

	componentEnabled map[Component]bool
	minLevel         LogLevel
}

// NewLogger creates a new logger instance
func NewLogger(maxEntries int) *Logger {
	if maxEntries < 100 {
		maxEntries = 100 // Minimum buffer size
	}
	return &Logger{
		entries:          make([]LogEntry, maxEntries),
		maxEntries:       maxEntries,
		componentEnabled: make(map[Component]bool),
		minLevel:         LogLevelInfo,
	}
}

// Log logs a message with the specified component and level
func (l *Logger) Log(component Component, level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.componentEnabled[component] || level > l.minLevel {
		return
	}

	l.entries[l.writeIndex] = LogEntry{
		Timestamp: now(),
		Component: component,
		Level:     level,
		Message:   message,
	}
	l.writeIndex = (l.writeIndex + 1) % l.maxEntries
	if l.entryCount < l.maxEntries {
		l.entryCount++
	}
}

// Logf logs a formatted message
func (l *Logger) Logf(component Component, level LogLevel, format string, args ...interface{}) {
	// Skip the Sprintf when the component is muted.
	if !l.IsComponentEnabled(component) {
		return
	}
	l.Log(component, level, fmt.Sprintf(format, args...))
}

// GetEntries returns a copy of all log entries (oldest first)
func (l *Logger) GetEntries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.entryCount == 0 {
		return []LogEntry{}
	}
	entries := make([]LogEntry, l.entryCount)
	if l.entryCount < l.maxEntries {
		copy(entries, l.entries[:l.entryCount])
	} else {
		for i := 0; i < l.entryCount; i++ {
			entries[i] = l.entries[(l.writeIndex+i)%l.maxEntries]
		}
	}
	return entries
}

// GetRecentEntries returns the most recent N entries
func (l *Logger) GetRecentEntries(count int) []LogEntry {
	all := l.GetEntries()
	if count >= len(all) {
		return all
	}
	return all[len(all)-count:]
}

// Clear clears all log entries
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entryCount = 0
	l.writeIndex = 0
}

// SetComponentEnabled enables or disables logging for a component
func (l *Logger) SetComponentEnabled(component Component, enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.componentEnabled[component] = enabled
}

// EnableAll enables logging for every component
func (l *Logger) EnableAll() {
	for _, c := range []Component{
		ComponentBus, ComponentDMA, ComponentVideo, ComponentDSP,
		ComponentSched, ComponentState, ComponentInput, ComponentAudio,
		ComponentUI, ComponentSystem,
	} {
		l.SetComponentEnabled(c, true)
	}
}

// IsComponentEnabled returns whether a component is enabled
func (l *Logger) IsComponentEnabled(component Component) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.componentEnabled[component]
}

// SetMinLevel sets the minimum log level
func (l *Logger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}
