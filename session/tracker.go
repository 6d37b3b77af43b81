// Package session tracks what a single agent run touched: files read and
// written, searches, commands, and structured tool failures.
//
// One Tracker belongs to exactly one run. Every mutation happens under one
// exclusive lock so that concurrently executing tool calls never interleave
// partial updates, and Snapshot always observes a consistent state.
package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Failure is a structured tool failure recorded for the run summary. It
// mirrors the error object fed back to the model.
type Failure struct {
	ErrorCode   string         `json:"error_code"`
	Message     string         `json:"message"`
	Suggestions []string       `json:"suggestions"`
	Context     map[string]any `json:"context,omitempty"`
}

// SearchRecord captures one search_files invocation.
type SearchRecord struct {
	Pattern      string   `json:"pattern"`
	Extensions   []string `json:"extensions,omitempty"`
	Results      int      `json:"results"`
	FilesScanned int      `json:"files_scanned"`
}

// Tracker accumulates per-run counters and audit lists.
type Tracker struct {
	mu           sync.Mutex
	filesRead    map[string]struct{}
	filesWritten map[string]struct{}
	searches     []SearchRecord
	commandsRun  int
	errors       []Failure
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		filesRead:    make(map[string]struct{}),
		filesWritten: make(map[string]struct{}),
	}
}

// AddFileRead records a successful file read. Paths deduplicate.
func (t *Tracker) AddFileRead(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filesRead[path] = struct{}{}
}

// AddFileWritten records a successful file write. Paths deduplicate.
func (t *Tracker) AddFileWritten(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filesWritten[path] = struct{}{}
}

// AddSearch records a completed search.
func (t *Tracker) AddSearch(rec SearchRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.searches = append(t.searches, rec)
}

// AddCommandRun records an executed external command (git, etc.).
func (t *Tracker) AddCommandRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commandsRun++
}

// AddError records a structured tool failure.
func (t *Tracker) AddError(f Failure) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, f)
}

// State is a consistent point-in-time copy of a Tracker.
type State struct {
	FilesRead         []string       `json:"files_read"`
	FilesWritten      []string       `json:"files_written"`
	SearchesPerformed int            `json:"searches_performed"`
	Searches          []SearchRecord `json:"searches,omitempty"`
	CommandsRun       int            `json:"commands_run"`
	Errors            []Failure      `json:"errors,omitempty"`
}

// Snapshot returns a consistent copy of the tracker state. File lists are
// sorted for stable output.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := State{
		FilesRead:         make([]string, 0, len(t.filesRead)),
		FilesWritten:      make([]string, 0, len(t.filesWritten)),
		SearchesPerformed: len(t.searches),
		Searches:          append([]SearchRecord(nil), t.searches...),
		CommandsRun:       t.commandsRun,
		Errors:            append([]Failure(nil), t.errors...),
	}
	for p := range t.filesRead {
		s.FilesRead = append(s.FilesRead, p)
	}
	for p := range t.filesWritten {
		s.FilesWritten = append(s.FilesWritten, p)
	}
	sort.Strings(s.FilesRead)
	sort.Strings(s.FilesWritten)
	return s
}

// Summary renders the end-of-run projection of the tracker state.
func (s State) Summary() string {
	joinOrNone := func(items []string) string {
		if len(items) == 0 {
			return "None"
		}
		return strings.Join(items, ", ")
	}

	var sb strings.Builder
	sb.WriteString("=== SESSION SUMMARY ===\n")
	fmt.Fprintf(&sb, "Files read: %d\n", len(s.FilesRead))
	fmt.Fprintf(&sb, "Files written: %d\n", len(s.FilesWritten))
	fmt.Fprintf(&sb, "Commands run: %d\n", s.CommandsRun)
	fmt.Fprintf(&sb, "Searches performed: %d\n", s.SearchesPerformed)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Files read: %s\n", joinOrNone(s.FilesRead))
	fmt.Fprintf(&sb, "Files written: %s", joinOrNone(s.FilesWritten))
	return sb.String()
}
