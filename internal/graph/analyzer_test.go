package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoinhurrell/notegraph/internal/cache"
)

func writeNote(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newTestAnalyzer() *Analyzer {
	return New(cache.New(cache.DefaultConfig()))
}

func TestAnalyze_EmptyVault(t *testing.T) {
	dir := t.TempDir()
	analyzer := newTestAnalyzer()

	stats, err := analyzer.Analyze(dir, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.NoteCount)
	assert.Equal(t, 0, stats.UniqueConnections)
	assert.Equal(t, 0, stats.TotalMentions)
	assert.Empty(t, stats.DanglingLinks)
	assert.Empty(t, stats.OrphanNotes)
}

func TestAnalyze_MissingDirectoryYieldsEmptyStats(t *testing.T) {
	analyzer := newTestAnalyzer()

	stats, err := analyzer.Analyze(filepath.Join(t.TempDir(), "nope"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NoteCount)
}

func TestAnalyze_NoLinks(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: A\n---\nplain\n")
	writeNote(t, dir, "b.md", "---\ntitle: B\n---\nplain\n")

	stats, err := newTestAnalyzer().Analyze(dir, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.NoteCount)
	assert.Equal(t, 0, stats.UniqueConnections)
	assert.Equal(t, 0, stats.TotalMentions)
	assert.Len(t, stats.OrphanNotes, 2)
}

func TestAnalyze_MentionsVersusConnections(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "note1.md", "---\ntitle: Note 1\n---\n[[Note 2]] and [[Note 2]] and [[Missing]]\n")
	writeNote(t, dir, "note2.md", "---\ntitle: Note 2\n---\nno links here\n")

	stats, err := newTestAnalyzer().Analyze(dir, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.NoteCount)
	assert.Equal(t, 1, stats.UniqueConnections)
	assert.Equal(t, 3, stats.TotalMentions)

	require.Len(t, stats.DanglingLinks, 1)
	assert.Equal(t, "Missing", stats.DanglingLinks[0].Target)
	require.Len(t, stats.DanglingLinks[0].Sources, 1)
	assert.Equal(t, "Note 1", stats.DanglingLinks[0].Sources[0].NoteTitle)
	assert.Equal(t, 1, stats.DanglingLinks[0].Sources[0].Count)

	// note2 has an incoming backlink, note1 an outgoing link: no orphans
	assert.Empty(t, stats.OrphanNotes)

	// the backlink is deduplicated despite two mentions
	assert.Len(t, stats.Backlinks["Note 2"], 1)
}

func TestAnalyze_AliasResolvesToCanonicalTitle(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "tips.md", "---\ntitle: Claude Code Tips\naliases: [Claude Tips, CC Tips]\n---\nbody\n")
	writeNote(t, dir, "other.md", "---\ntitle: Other\n---\nsee [[Claude Tips]]\n")

	stats, err := newTestAnalyzer().Analyze(dir, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, stats.DanglingLinks)

	// backlink keyed by canonical title, not the alias text
	entries := stats.Backlinks["Claude Code Tips"]
	require.Len(t, entries, 1)
	assert.Equal(t, "Other", entries[0].NoteTitle)
	assert.NotContains(t, stats.Backlinks, "Claude Tips")
	assert.NotContains(t, stats.Backlinks, "CC Tips")

	// forward link also records the canonical title
	assert.Equal(t, []string{"Claude Code Tips"}, stats.ForwardLinks[filepath.Join(mustAbs(t, dir), "other.md")])
}

func mustAbs(t *testing.T, dir string) string {
	t.Helper()
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	return abs
}

func TestAnalyze_SectionAndAliasDoNotAffectResolution(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "target.md", "---\ntitle: Target\n---\nbody\n")
	writeNote(t, dir, "src.md", "---\ntitle: Src\n---\n[[Target#Setup|display]] [[target]] [[TARGET.md]]\n")

	stats, err := newTestAnalyzer().Analyze(dir, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, stats.DanglingLinks)
	assert.Equal(t, 1, stats.UniqueConnections)
	assert.Equal(t, 3, stats.TotalMentions)
	require.Len(t, stats.Backlinks["Target"], 1)
	// the first mention's alias is kept on the deduplicated entry
	assert.Equal(t, "display", stats.Backlinks["Target"][0].Alias)
}

func TestAnalyze_Orphans(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "hub.md", "---\ntitle: Hub\n---\n[[Spoke]]\n")
	writeNote(t, dir, "spoke.md", "---\ntitle: Spoke\n---\nno links\n")
	writeNote(t, dir, "island.md", "---\ntitle: Island\n---\nalone, only [[Nowhere]] dangling\n")

	stats, err := newTestAnalyzer().Analyze(dir, DefaultOptions())
	require.NoError(t, err)

	// a dangling mention is not a resolved outgoing link
	require.Len(t, stats.OrphanNotes, 1)
	assert.Equal(t, "island.md", filepath.Base(stats.OrphanNotes[0]))
}

func TestAnalyze_IncludeContext(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: A\n---\nsome text before [[B]] and after\n")
	writeNote(t, dir, "b.md", "---\ntitle: B\n---\nbody\n")

	stats, err := newTestAnalyzer().Analyze(dir, Options{IncludeContext: true, ContextLength: 30, UseCache: true})
	require.NoError(t, err)

	entries := stats.Backlinks["B"]
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Context, "[[B]]")
}

func TestAnalyze_CacheStaleUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: A\n---\n")
	analyzer := newTestAnalyzer()

	first, err := analyzer.Analyze(dir, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, first.NoteCount)

	// a new file appears without invalidation: still the stale count
	writeNote(t, dir, "b.md", "---\ntitle: B\n---\n")
	second, err := analyzer.Analyze(dir, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, second.NoteCount)
	assert.Equal(t, first.AnalysisID, second.AnalysisID)

	analyzer.InvalidateCache(dir)
	third, err := analyzer.Analyze(dir, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, third.NoteCount)
}

func TestAnalyze_UseCacheFalseBypassesCache(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: A\n---\n")
	analyzer := newTestAnalyzer()

	_, err := analyzer.Analyze(dir, DefaultOptions())
	require.NoError(t, err)

	writeNote(t, dir, "b.md", "---\ntitle: B\n---\n")
	fresh, err := analyzer.Analyze(dir, Options{UseCache: false})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.NoteCount)
}

func TestGetBacklinksForNote(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: Source\n---\n[[My Target]]\n")
	writeNote(t, dir, "b.md", "---\ntitle: My Target\n---\n")
	analyzer := newTestAnalyzer()

	entries, err := analyzer.GetBacklinksForNote(dir, "My Target")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Source", entries[0].NoteTitle)

	// normalized fallback match
	entries, err = analyzer.GetBacklinksForNote(dir, "my-target")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = analyzer.GetBacklinksForNote(dir, "Unknown")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQuickStats(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: A\n---\n[[B]] [[Gone]]\n")
	writeNote(t, dir, "b.md", "---\ntitle: B\n---\n")
	writeNote(t, dir, "c.md", "---\ntitle: C\n---\n")

	quick, err := newTestAnalyzer().QuickStats(dir)
	require.NoError(t, err)

	assert.Equal(t, QuickStats{
		NoteCount:       3,
		ConnectionCount: 1,
		DanglingCount:   1,
		OrphanCount:     1,
	}, quick)
}

func TestFindDanglingAndOrphanProjections(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: A\n---\n[[Ghost]] [[Ghost]] [[Phantom]]\n")

	analyzer := newTestAnalyzer()

	dangling, err := analyzer.FindDanglingLinks(dir)
	require.NoError(t, err)
	require.Len(t, dangling, 2)
	assert.Equal(t, "Ghost", dangling[0].Target)
	assert.Equal(t, 2, dangling[0].Sources[0].Count)
	assert.Equal(t, "Phantom", dangling[1].Target)

	orphans, err := analyzer.FindOrphanNotes(dir)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)
}

func TestAnalyze_UnreadableFileSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	writeNote(t, dir, "ok.md", "---\ntitle: OK\n---\n")
	writeNote(t, dir, "bad.md", "---\ntitle: Bad\n---\n")
	require.NoError(t, os.Chmod(filepath.Join(dir, "bad.md"), 0000))

	stats, err := newTestAnalyzer().Analyze(dir, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NoteCount)
}

func TestAnalyze_CollisionsRecorded(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: A\naliases: [Shared]\n---\n")
	writeNote(t, dir, "b.md", "---\ntitle: B\naliases: [Shared]\n---\n")

	stats, err := newTestAnalyzer().Analyze(dir, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, stats.Collisions, 1)
	assert.Equal(t, "shared", stats.Collisions[0].Key)
}
