package graph

import (
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eoinhurrell/notegraph/internal/cache"
	"github.com/eoinhurrell/notegraph/internal/resolver"
	"github.com/eoinhurrell/notegraph/internal/vault"
	"github.com/eoinhurrell/notegraph/internal/wikilink"
)

// CacheType is the cache entry type used for full graph scans
const CacheType = "graph"

// DefaultMaxWorkers bounds concurrent file loads during a scan
const DefaultMaxWorkers = 10

// Options control a single analysis request
type Options struct {
	IncludeContext bool
	ContextLength  int
	UseCache       bool
}

// DefaultOptions returns the options used by thin projection calls
func DefaultOptions() Options {
	return Options{UseCache: true, ContextLength: 100}
}

// Analyzer builds the note graph for a directory of markdown notes. The
// cache instance is injected; the analyzer owns no hidden shared state.
type Analyzer struct {
	cache      *cache.Cache
	parser     *wikilink.Parser
	scanner    *vault.Scanner
	maxWorkers int
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithMaxWorkers overrides the bounded concurrency for file loads
func WithMaxWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxWorkers = n
		}
	}
}

// WithIgnorePatterns sets scanner ignore patterns
func WithIgnorePatterns(patterns []string) Option {
	return func(a *Analyzer) {
		a.scanner = vault.NewScanner(vault.WithIgnorePatterns(patterns))
	}
}

// New creates an analyzer backed by the given cache
func New(c *cache.Cache, opts ...Option) *Analyzer {
	a := &Analyzer{
		cache:      c,
		parser:     wikilink.NewParser(),
		scanner:    vault.NewScanner(),
		maxWorkers: DefaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns graph statistics for dir, from cache when possible.
// A missing or unreadable directory yields an empty zero-count result,
// never an error: callers treat "no notes" and "not found" identically.
func (a *Analyzer) Analyze(dir string, opts Options) (*Stats, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	if opts.UseCache {
		if cached, ok := a.cache.Get(CacheType, absDir); ok {
			if stats, ok := cached.(*Stats); ok {
				return stats, nil
			}
		}
	}

	paths, _ := a.scanner.ListMarkdown(absDir)
	notes := a.loadNotes(absDir, paths)
	stats := a.buildStats(notes, opts)

	a.cache.Set(CacheType, absDir, stats)
	return stats, nil
}

// GetBacklinksForNote returns the backlink entries recorded under title.
// An exact key match is preferred; otherwise keys are compared in
// normalized form. Unknown titles yield an empty slice.
func (a *Analyzer) GetBacklinksForNote(dir, title string) ([]BacklinkEntry, error) {
	stats, err := a.Analyze(dir, DefaultOptions())
	if err != nil {
		return nil, err
	}

	if entries, ok := stats.Backlinks[title]; ok {
		return entries, nil
	}

	want := resolver.Normalize(title)
	for key, entries := range stats.Backlinks {
		if resolver.Normalize(key) == want {
			return entries, nil
		}
	}
	return nil, nil
}

// FindDanglingLinks returns all wikilink targets that resolve to no note
func (a *Analyzer) FindDanglingLinks(dir string) ([]DanglingLink, error) {
	stats, err := a.Analyze(dir, DefaultOptions())
	if err != nil {
		return nil, err
	}
	return stats.DanglingLinks, nil
}

// FindOrphanNotes returns paths of notes with no links in either direction
func (a *Analyzer) FindOrphanNotes(dir string) ([]string, error) {
	stats, err := a.Analyze(dir, DefaultOptions())
	if err != nil {
		return nil, err
	}
	return stats.OrphanNotes, nil
}

// QuickStats returns the cheap counters used by status-bar callers
func (a *Analyzer) QuickStats(dir string) (QuickStats, error) {
	stats, err := a.Analyze(dir, DefaultOptions())
	if err != nil {
		return QuickStats{}, err
	}
	return QuickStats{
		NoteCount:       stats.NoteCount,
		ConnectionCount: stats.UniqueConnections,
		DanglingCount:   len(stats.DanglingLinks),
		OrphanCount:     len(stats.OrphanNotes),
	}, nil
}

// InvalidateCache evicts the cached scan for dir. Importers and editors
// call this after bulk mutation.
func (a *Analyzer) InvalidateCache(dir string) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	a.cache.Invalidate(CacheType, absDir)
}

// loadNotes reads all files with bounded concurrency. Results land at
// their original index so ordering is deterministic regardless of
// completion order; unreadable files are logged and skipped.
func (a *Analyzer) loadNotes(absDir string, paths []string) []*vault.NoteFile {
	results := make([]*vault.NoteFile, len(paths))

	var g errgroup.Group
	g.SetLimit(a.maxWorkers)
	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			nf, err := vault.LoadNoteFile(filepath.Join(absDir, rel), rel)
			if err != nil {
				log.Printf("notegraph: skipping %s: %v", rel, err)
				return nil
			}
			results[i] = nf
			return nil
		})
	}
	_ = g.Wait()

	notes := make([]*vault.NoteFile, 0, len(results))
	for _, nf := range results {
		if nf != nil {
			notes = append(notes, nf)
		}
	}
	return notes
}

// buildStats runs the sequential link pass over already-loaded content.
// Mutation of the shared maps never interleaves with I/O.
func (a *Analyzer) buildStats(notes []*vault.NoteFile, opts Options) *Stats {
	stats := &Stats{
		AnalysisID:   uuid.NewString(),
		GeneratedAt:  time.Now(),
		NoteCount:    len(notes),
		Backlinks:    make(map[string][]BacklinkEntry),
		ForwardLinks: make(map[string][]string),
		OrphanNotes:  []string{},
	}

	metas := make([]*resolver.NoteMetadata, len(notes))
	for i, nf := range notes {
		metas[i] = &nf.Meta
		stats.Notes = append(stats.Notes, nf.Meta)
	}
	idx := resolver.BuildIndex(metas)
	stats.Collisions = idx.Collisions()

	connections := make(map[string]map[string]bool)   // source path -> target paths
	backlinkSeen := make(map[string]map[string]bool)  // target title -> source paths
	danglingCounts := make(map[string]map[string]int) // target text -> source path -> count
	sourceByPath := make(map[string]*vault.NoteFile)

	for _, nf := range notes {
		sourceByPath[nf.Path] = nf
		links := a.parser.Parse(nf.Body)
		stats.TotalMentions += len(links)

		forwardSeen := make(map[string]bool)
		for _, link := range links {
			if link.Target == "" {
				continue
			}

			target, ok := idx.Resolve(link.Target)
			if !ok {
				if danglingCounts[link.Target] == nil {
					danglingCounts[link.Target] = make(map[string]int)
				}
				danglingCounts[link.Target][nf.Path]++
				continue
			}

			if !forwardSeen[target.Title] {
				forwardSeen[target.Title] = true
				stats.ForwardLinks[nf.Path] = append(stats.ForwardLinks[nf.Path], target.Title)
			}

			if connections[nf.Path] == nil {
				connections[nf.Path] = make(map[string]bool)
			}
			connections[nf.Path][target.Path] = true

			if backlinkSeen[target.Title] == nil {
				backlinkSeen[target.Title] = make(map[string]bool)
			}
			if !backlinkSeen[target.Title][nf.Path] {
				backlinkSeen[target.Title][nf.Path] = true
				entry := BacklinkEntry{
					NoteID:    nf.Meta.ID,
					NotePath:  nf.Path,
					NoteTitle: nf.Meta.Title,
					Alias:     link.Alias,
				}
				if opts.IncludeContext {
					entry.Context = extractContext(nf.Body, link.Position, opts.ContextLength)
				}
				stats.Backlinks[target.Title] = append(stats.Backlinks[target.Title], entry)
			}
		}
	}

	for _, targets := range connections {
		stats.UniqueConnections += len(targets)
	}

	stats.DanglingLinks = assembleDangling(danglingCounts, sourceByPath)

	for _, nf := range notes {
		if len(stats.ForwardLinks[nf.Path]) == 0 && len(stats.Backlinks[nf.Meta.Title]) == 0 {
			stats.OrphanNotes = append(stats.OrphanNotes, nf.Path)
		}
	}
	sort.Strings(stats.OrphanNotes)

	return stats
}

// assembleDangling turns the per-source mention counts into sorted
// DanglingLink records.
func assembleDangling(counts map[string]map[string]int, byPath map[string]*vault.NoteFile) []DanglingLink {
	dangling := make([]DanglingLink, 0, len(counts))
	for target, perSource := range counts {
		link := DanglingLink{Target: target}
		for path, count := range perSource {
			source := DanglingSource{NotePath: path, Count: count}
			if nf, ok := byPath[path]; ok {
				source.NoteID = nf.Meta.ID
				source.NoteTitle = nf.Meta.Title
			}
			link.Sources = append(link.Sources, source)
		}
		sort.Slice(link.Sources, func(i, j int) bool {
			return link.Sources[i].NotePath < link.Sources[j].NotePath
		})
		dangling = append(dangling, link)
	}
	sort.Slice(dangling, func(i, j int) bool {
		return dangling[i].Target < dangling[j].Target
	})
	return dangling
}

// extractContext returns a snippet of body text around a link mention,
// flattened to a single line.
func extractContext(body string, pos wikilink.Position, length int) string {
	if length <= 0 {
		length = 100
	}
	start := pos.Start - length/2
	if start < 0 {
		start = 0
	}
	end := pos.End + length/2
	if end > len(body) {
		end = len(body)
	}
	snippet := strings.Join(strings.Fields(body[start:end]), " ")
	return snippet
}
