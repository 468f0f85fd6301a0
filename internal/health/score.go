package health

import (
	"fmt"
	"sort"

	"github.com/eoinhurrell/notegraph/internal/graph"
)

// Status buckets for the composite score
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Anomaly severities
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Anomaly kinds
const (
	AnomalyHub            = "hub_concentration"
	AnomalySuspiciousLink = "suspicious_auto_link"
	AnomalyAliasCollision = "alias_collision"
)

// Detection thresholds
const (
	hubWarningShare    = 0.20 // share of all backlinks marking a hub
	hubCriticalShare   = 0.50
	suspiciousLinkRefs = 10 // distinct linking notes marking an auto-link
	lowDensity         = 1.0
)

// Penalty caps; each penalty scales with its underlying percentage
const (
	isolationCap = 30.0
	orphanCap    = 25.0
	hubCap       = 25.0
	danglingCap  = 20.0
)

// Metrics are the derived graph quality numbers
type Metrics struct {
	AvgBacklinksPerNote float64 `json:"avg_backlinks_per_note"`
	MaxBacklinks        int     `json:"max_backlinks"`
	PctNoBacklinks      float64 `json:"pct_no_backlinks"`
	PctNoOutlinks       float64 `json:"pct_no_outlinks"`
	OrphanPct           float64 `json:"orphan_pct"`
	Density             float64 `json:"density"`
	DanglingRatio       float64 `json:"dangling_ratio"`
}

// Anomaly flags a single questionable structure in the graph
type Anomaly struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Subject  string `json:"subject"` // note title, link target or index key
	Detail   string `json:"detail"`
}

// Report is the full health assessment of one graph snapshot
type Report struct {
	HealthScore     float64   `json:"health_score"` // 0-100
	Status          string    `json:"status"`
	Metrics         Metrics   `json:"metrics"`
	Anomalies       []Anomaly `json:"anomalies"`
	Recommendations []string  `json:"recommendations"`
}

// Score derives anomaly flags and a weighted 0-100 health score from a
// graph snapshot. Pure function: no I/O, deterministic.
func Score(stats *graph.Stats) *Report {
	report := &Report{
		Anomalies:       []Anomaly{},
		Recommendations: []string{},
	}

	metrics, totalBacklinks := deriveMetrics(stats)
	report.Metrics = metrics

	maxHubShare := detectHubs(stats, totalBacklinks, report)
	suspicious := detectSuspiciousAutoLinks(stats, report)
	detectCollisions(stats, report)

	score := 100.0
	score -= isolationCap * metrics.PctNoBacklinks / 100
	score -= orphanCap * metrics.OrphanPct / 100
	score -= hubCap * maxHubShare
	score -= danglingCap * metrics.DanglingRatio
	report.HealthScore = clamp(score, 0, 100)

	switch {
	case report.HealthScore < 50:
		report.Status = StatusCritical
	case report.HealthScore < 75:
		report.Status = StatusWarning
	default:
		report.Status = StatusHealthy
	}

	report.Recommendations = recommend(stats, metrics, maxHubShare, suspicious)
	return report
}

func deriveMetrics(stats *graph.Stats) (Metrics, int) {
	var m Metrics
	if stats.NoteCount == 0 {
		return m, 0
	}

	totalBacklinks := 0
	for _, entries := range stats.Backlinks {
		totalBacklinks += len(entries)
		if len(entries) > m.MaxBacklinks {
			m.MaxBacklinks = len(entries)
		}
	}
	m.AvgBacklinksPerNote = float64(totalBacklinks) / float64(stats.NoteCount)

	noBacklinks := 0
	noOutlinks := 0
	for _, note := range stats.Notes {
		if len(stats.Backlinks[note.Title]) == 0 {
			noBacklinks++
		}
		if len(stats.ForwardLinks[note.Path]) == 0 {
			noOutlinks++
		}
	}
	m.PctNoBacklinks = pct(noBacklinks, stats.NoteCount)
	m.PctNoOutlinks = pct(noOutlinks, stats.NoteCount)
	m.OrphanPct = pct(len(stats.OrphanNotes), stats.NoteCount)
	m.Density = float64(stats.UniqueConnections) / float64(stats.NoteCount)

	if stats.TotalMentions > 0 {
		danglingMentions := 0
		for _, d := range stats.DanglingLinks {
			danglingMentions += d.TotalOccurrences()
		}
		m.DanglingRatio = float64(danglingMentions) / float64(stats.TotalMentions)
	}
	return m, totalBacklinks
}

// detectHubs flags notes holding an outsized share of all backlinks and
// returns the largest share seen.
func detectHubs(stats *graph.Stats, totalBacklinks int, report *Report) float64 {
	if totalBacklinks == 0 {
		return 0
	}

	maxShare := 0.0
	titles := sortedKeys(stats.Backlinks)
	for _, title := range titles {
		share := float64(len(stats.Backlinks[title])) / float64(totalBacklinks)
		if share > maxShare {
			maxShare = share
		}
		if share <= hubWarningShare {
			continue
		}
		severity := SeverityWarning
		if share > hubCriticalShare {
			severity = SeverityCritical
		}
		report.Anomalies = append(report.Anomalies, Anomaly{
			Type:     AnomalyHub,
			Severity: severity,
			Subject:  title,
			Detail:   fmt.Sprintf("receives %.0f%% of all backlinks", share*100),
		})
	}
	return maxShare
}

// detectSuspiciousAutoLinks flags targets linked from many distinct
// notes, a signal of over-eager auto-linking. Returns flagged targets.
func detectSuspiciousAutoLinks(stats *graph.Stats, report *Report) []string {
	refs := make(map[string]int)
	for _, targets := range stats.ForwardLinks {
		for _, title := range targets {
			refs[title]++
		}
	}

	var suspicious []string
	for _, title := range sortedKeys(refs) {
		if refs[title] < suspiciousLinkRefs {
			continue
		}
		suspicious = append(suspicious, title)
		report.Anomalies = append(report.Anomalies, Anomaly{
			Type:     AnomalySuspiciousLink,
			Severity: SeverityWarning,
			Subject:  title,
			Detail:   fmt.Sprintf("linked from %d distinct notes", refs[title]),
		})
	}
	return suspicious
}

func detectCollisions(stats *graph.Stats, report *Report) {
	for _, col := range stats.Collisions {
		report.Anomalies = append(report.Anomalies, Anomaly{
			Type:     AnomalyAliasCollision,
			Severity: SeverityWarning,
			Subject:  col.Key,
			Detail:   fmt.Sprintf("%s shadows %s for key %q", col.Winner, col.Shadowed, col.Key),
		})
	}
}

// recommend emits deterministic suggestions in fixed priority order:
// hubs, isolation, no-outlinks, orphans, suspicious auto-links,
// dangling links, low density, alias collisions.
func recommend(stats *graph.Stats, m Metrics, maxHubShare float64, suspicious []string) []string {
	recs := []string{}

	if maxHubShare > hubWarningShare {
		recs = append(recs, "Split hub notes: a single note concentrates a large share of all backlinks")
	}
	if m.PctNoBacklinks > 50 {
		recs = append(recs, fmt.Sprintf("Improve connectivity: %.0f%% of notes have no incoming links", m.PctNoBacklinks))
	}
	if m.PctNoOutlinks > 50 {
		recs = append(recs, fmt.Sprintf("Add outgoing links: %.0f%% of notes link to nothing", m.PctNoOutlinks))
	}
	if len(stats.OrphanNotes) > 0 {
		recs = append(recs, fmt.Sprintf("Connect %d orphan notes that have no links in either direction", len(stats.OrphanNotes)))
	}
	if len(suspicious) > 0 {
		recs = append(recs, fmt.Sprintf("Review %d heavily auto-linked targets for over-eager linking", len(suspicious)))
	}
	if len(stats.DanglingLinks) > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d dangling link targets that resolve to no note", len(stats.DanglingLinks)))
	}
	if stats.NoteCount > 0 && m.Density < lowDensity {
		recs = append(recs, "Increase link density: the graph averages less than one connection per note")
	}
	if len(stats.Collisions) > 0 {
		recs = append(recs, fmt.Sprintf("Resolve %d alias collisions where two notes claim the same name", len(stats.Collisions)))
	}
	return recs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
