package similarity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eoinhurrell/notegraph/internal/graph"
)

// Options control clustering of dangling-link targets
type Options struct {
	Threshold      float64 // minimum similarity to join a cluster
	MinClusterSize int     // clusters smaller than this are dropped
	MaxResults     int     // cap on returned clusters
}

// DefaultOptions returns the standard clustering parameters
func DefaultOptions() Options {
	return Options{
		Threshold:      0.7,
		MinClusterSize: 2,
		MaxResults:     50,
	}
}

// Member is one dangling target assigned to a cluster
type Member struct {
	Target      string  `json:"target"`
	Occurrences int     `json:"occurrences"`
	Similarity  float64 `json:"similarity"` // to the cluster representative
}

// LinkCluster groups dangling targets that are textual near-duplicates
// of each other, proposing one canonical spelling.
type LinkCluster struct {
	ID                   string   `json:"id"`
	RepresentativeTarget string   `json:"representative_target"`
	Members              []Member `json:"members"`
	TotalOccurrences     int      `json:"total_occurrences"`
	AverageSimilarity    float64  `json:"average_similarity"`
}

// Cluster groups dangling-link targets by string similarity. It is a
// pure function of its input: same targets and options, in any input
// order, produce the same clusters.
func Cluster(dangling []graph.DanglingLink, opts Options) []LinkCluster {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if opts.MinClusterSize <= 0 {
		opts.MinClusterSize = DefaultOptions().MinClusterSize
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultOptions().MaxResults
	}

	candidates := collectCandidates(dangling)

	var clusters [][]candidate
	for _, cand := range candidates {
		best := -1
		bestScore := 0.0
		for i, members := range clusters {
			score := Similarity(cand.target, members[0].target)
			if score >= opts.Threshold && score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best >= 0 {
			clusters[best] = append(clusters[best], cand)
		} else {
			clusters = append(clusters, []candidate{cand})
		}
	}

	var result []LinkCluster
	for _, members := range clusters {
		if len(members) < opts.MinClusterSize {
			continue
		}
		result = append(result, assemble(members))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalOccurrences != result[j].TotalOccurrences {
			return result[i].TotalOccurrences > result[j].TotalOccurrences
		}
		return result[i].RepresentativeTarget < result[j].RepresentativeTarget
	})
	if len(result) > opts.MaxResults {
		result = result[:opts.MaxResults]
	}
	for i := range result {
		result[i].ID = fmt.Sprintf("cluster-%d", i+1)
	}
	return result
}

type candidate struct {
	target      string
	occurrences int
}

// collectCandidates flattens dangling links into a deterministically
// ordered candidate list: occurrences desc, then shorter string, then
// lexical. Input order cannot influence the result.
func collectCandidates(dangling []graph.DanglingLink) []candidate {
	byTarget := make(map[string]int)
	for _, link := range dangling {
		byTarget[link.Target] += link.TotalOccurrences()
	}

	candidates := make([]candidate, 0, len(byTarget))
	for target, occ := range byTarget {
		candidates = append(candidates, candidate{target: target, occurrences: occ})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.occurrences != b.occurrences {
			return a.occurrences > b.occurrences
		}
		if len(a.target) != len(b.target) {
			return len(a.target) < len(b.target)
		}
		return a.target < b.target
	})
	return candidates
}

// assemble picks the representative and computes member similarities.
// The candidate ordering guarantees the first member has the highest
// occurrence count (ties broken by shortest string, then lexical).
func assemble(members []candidate) LinkCluster {
	rep := members[0]

	cluster := LinkCluster{
		RepresentativeTarget: rep.target,
	}

	var simSum float64
	for _, m := range members {
		score := Similarity(m.target, rep.target)
		cluster.Members = append(cluster.Members, Member{
			Target:      m.target,
			Occurrences: m.occurrences,
			Similarity:  score,
		})
		cluster.TotalOccurrences += m.occurrences
		if m.target != rep.target {
			simSum += score
		}
	}
	if n := len(members) - 1; n > 0 {
		cluster.AverageSimilarity = simSum / float64(n)
	} else {
		cluster.AverageSimilarity = 1.0
	}
	return cluster
}

// Similarity returns a normalized edit-distance score in [0,1] between
// two strings, case-insensitively. Identical strings score 1.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	dist := levenshtein([]rune(a), []rune(b))
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	return 1.0 - float64(dist)/float64(longest)
}

// levenshtein computes edit distance with a two-row DP table
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
