package graph

import (
	"time"

	"github.com/eoinhurrell/notegraph/internal/resolver"
)

// BacklinkEntry records one resolved reference from a source note to a
// target note. Entries are deduplicated per (source, target) pair: a
// note backlinks a target at most once no matter how often it mentions
// it.
type BacklinkEntry struct {
	NoteID    string `json:"note_id"`
	NotePath  string `json:"note_path"`
	NoteTitle string `json:"note_title"`
	Alias     string `json:"alias,omitempty"`
	Context   string `json:"context,omitempty"`
}

// DanglingSource is one note mentioning an unresolvable target, with the
// mention frequency within that note.
type DanglingSource struct {
	NoteID    string `json:"note_id"`
	NotePath  string `json:"note_path"`
	NoteTitle string `json:"note_title"`
	Count     int    `json:"count"`
}

// DanglingLink groups all sources pointing at one unresolvable target
type DanglingLink struct {
	Target  string           `json:"target"`
	Sources []DanglingSource `json:"sources"`
}

// TotalOccurrences sums mention counts across all sources
func (d DanglingLink) TotalOccurrences() int {
	total := 0
	for _, s := range d.Sources {
		total += s.Count
	}
	return total
}

// Stats is the aggregate result of one full-corpus analysis. It lives in
// the cache until the directory's entry is invalidated; there is no
// incremental patching.
type Stats struct {
	AnalysisID        string                     `json:"analysis_id"`
	GeneratedAt       time.Time                  `json:"generated_at"`
	NoteCount         int                        `json:"note_count"`
	UniqueConnections int                        `json:"unique_connections"`
	TotalMentions     int                        `json:"total_mentions"`
	DanglingLinks     []DanglingLink             `json:"dangling_links"`
	OrphanNotes       []string                   `json:"orphan_notes"`
	Backlinks         map[string][]BacklinkEntry `json:"backlinks"`
	ForwardLinks      map[string][]string        `json:"forward_links"`
	Notes             []resolver.NoteMetadata    `json:"notes"`
	Collisions        []resolver.Collision       `json:"alias_collisions,omitempty"`
}

// QuickStats is the cheap projection used by status-bar style callers
type QuickStats struct {
	NoteCount       int `json:"note_count"`
	ConnectionCount int `json:"connection_count"`
	DanglingCount   int `json:"dangling_count"`
	OrphanCount     int `json:"orphan_count"`
}
