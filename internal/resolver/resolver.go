package resolver

import (
	"strings"
)

// NoteMetadata describes one note as seen by the link index. Built once
// per analysis run and immutable afterwards.
type NoteMetadata struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Path     string   `json:"path"`
	Basename string   `json:"basename"`
	Aliases  []string `json:"aliases,omitempty"`
}

// Collision records an index key claimed by two different notes. The
// later-registered note wins; the earlier one becomes unreachable
// through that key.
type Collision struct {
	Key      string `json:"key"`
	Winner   string `json:"winner"`   // path of the note that kept the key
	Shadowed string `json:"shadowed"` // path of the note that lost it
}

// Index maps normalized lookup strings to note metadata. Titles are kept
// separately so a literal title match always beats an alias, basename or
// id registered by some other note.
type Index struct {
	byTitle    map[string]*NoteMetadata
	byFallback map[string]*NoteMetadata
	collisions []Collision
}

// Normalize produces the canonical lookup form of a title, filename or
// alias: lowercase, trimmed, trailing .md stripped, -/_ collapsed to
// spaces, repeated whitespace collapsed.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".md")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// BuildIndex registers every note under its title, basename, id and
// declared aliases. On key collision between two notes the later
// registration silently wins, but the collision is recorded so callers
// can surface it.
func BuildIndex(notes []*NoteMetadata) *Index {
	idx := &Index{
		byTitle:    make(map[string]*NoteMetadata),
		byFallback: make(map[string]*NoteMetadata),
	}

	for _, note := range notes {
		idx.registerTitle(Normalize(note.Title), note)
		idx.registerFallback(Normalize(note.Basename), note)
		if note.ID != "" && note.ID != note.Basename {
			idx.registerFallback(Normalize(note.ID), note)
		}
		for _, alias := range note.Aliases {
			idx.registerFallback(Normalize(alias), note)
		}
	}

	return idx
}

// Resolve looks up a link target. A literal title match is preferred;
// basename, id and alias keys are consulted only as a fallback.
func (idx *Index) Resolve(target string) (*NoteMetadata, bool) {
	key := Normalize(target)
	if key == "" {
		return nil, false
	}
	if note, ok := idx.byTitle[key]; ok {
		return note, true
	}
	if note, ok := idx.byFallback[key]; ok {
		return note, true
	}
	return nil, false
}

// Collisions returns the keys that were claimed by more than one note.
func (idx *Index) Collisions() []Collision {
	return idx.collisions
}

// Size returns the number of distinct lookup keys.
func (idx *Index) Size() int {
	return len(idx.byTitle) + len(idx.byFallback)
}

func (idx *Index) registerTitle(key string, note *NoteMetadata) {
	if key == "" {
		return
	}
	if prev, ok := idx.byTitle[key]; ok && prev.Path != note.Path {
		idx.collisions = append(idx.collisions, Collision{
			Key:      key,
			Winner:   note.Path,
			Shadowed: prev.Path,
		})
	}
	idx.byTitle[key] = note
}

func (idx *Index) registerFallback(key string, note *NoteMetadata) {
	if key == "" {
		return
	}
	if prev, ok := idx.byFallback[key]; ok {
		if prev.Path == note.Path {
			return
		}
		idx.collisions = append(idx.collisions, Collision{
			Key:      key,
			Winner:   note.Path,
			Shadowed: prev.Path,
		})
	}
	idx.byFallback[key] = note
}
