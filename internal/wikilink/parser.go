package wikilink

import (
	"regexp"
	"strings"
)

// Position locates a link occurrence within the scanned content
type Position struct {
	Start int `json:"start"` // byte offset of the opening [[
	End   int `json:"end"`   // byte offset just past the closing ]]
	Line  int `json:"line"`  // 1-based line number
}

// Link represents a single [[target#section|alias]] occurrence
type Link struct {
	Raw      string   `json:"raw"`
	Target   string   `json:"target"`
	Section  string   `json:"section,omitempty"`
	Alias    string   `json:"alias,omitempty"`
	Position Position `json:"position"`
}

// HasSection returns true if the link carries a #section suffix
func (l Link) HasSection() bool {
	return l.Section != ""
}

// HasAlias returns true if the link carries a |alias suffix
func (l Link) HasAlias() bool {
	return l.Alias != ""
}

// Parser extracts wikilinks from markdown content
type Parser struct {
	pattern *regexp.Regexp
}

// Wiki links: [[target]], [[target#section]], [[target|alias]],
// [[target#section|alias]]. Target never contains ], | or #; section and
// alias never contain ]. Unterminated sequences simply fail to match.
var linkPattern = regexp.MustCompile(`\[\[([^\]|#]+)(?:#([^\]|]*))?(?:\|([^\]]*))?\]\]`)

// NewParser creates a wikilink parser
func NewParser() *Parser {
	return &Parser{pattern: linkPattern}
}

// Parse finds all wikilinks in content, scanning line by line so that
// line numbers stay cheap and correct. Byte offsets are relative to the
// full content.
func (p *Parser) Parse(content string) []Link {
	var links []Link

	offset := 0
	for lineNo, line := range strings.Split(content, "\n") {
		for _, match := range p.pattern.FindAllStringSubmatchIndex(line, -1) {
			link := Link{
				Raw:    line[match[0]:match[1]],
				Target: strings.TrimSpace(line[match[2]:match[3]]),
				Position: Position{
					Start: offset + match[0],
					End:   offset + match[1],
					Line:  lineNo + 1,
				},
			}
			if match[4] >= 0 {
				link.Section = strings.TrimSpace(line[match[4]:match[5]])
			}
			if match[6] >= 0 {
				link.Alias = strings.TrimSpace(line[match[6]:match[7]])
			}
			links = append(links, link)
		}
		offset += len(line) + 1 // account for the stripped newline
	}

	return links
}

// ExtractUniqueTargets returns deduplicated target strings in first
// occurrence order. Used to build forward-link sets.
func (p *Parser) ExtractUniqueTargets(content string) []string {
	seen := make(map[string]bool)
	var targets []string

	for _, link := range p.Parse(content) {
		if link.Target == "" || seen[link.Target] {
			continue
		}
		seen[link.Target] = true
		targets = append(targets, link.Target)
	}

	return targets
}

// CountMentions returns the raw number of wikilink occurrences in
// content, duplicates and dangling targets included.
func (p *Parser) CountMentions(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		count += len(p.pattern.FindAllStringIndex(line, -1))
	}
	return count
}
