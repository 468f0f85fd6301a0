package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eoinhurrell/notegraph/internal/resolver"
)

// NoteFile represents a single markdown note loaded from disk
type NoteFile struct {
	Path         string
	RelativePath string
	Basename     string // filename without the .md extension
	Body         string
	Meta         resolver.NoteMetadata
	Modified     time.Time
}

// LoadNoteFile reads and parses one note. Front matter problems degrade
// gracefully: the note keeps filename-derived defaults instead of
// failing the scan.
func LoadNoteFile(path, relPath string) (*NoteFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading note: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat note: %w", err)
	}

	nf := &NoteFile{
		Path:         path,
		RelativePath: relPath,
		Basename:     strings.TrimSuffix(filepath.Base(path), ".md"),
		Modified:     info.ModTime(),
	}
	nf.parse(string(content))
	return nf, nil
}

// parse splits front matter from the body and derives note metadata.
func (nf *NoteFile) parse(content string) {
	fields, body := splitFrontmatter(content)
	nf.Body = body

	nf.Meta = resolver.NoteMetadata{
		ID:       nf.Basename,
		Title:    nf.Basename,
		Path:     nf.Path,
		Basename: nf.Basename,
	}

	if fields == nil {
		return
	}
	if title, ok := fields["title"].(string); ok && strings.TrimSpace(title) != "" {
		nf.Meta.Title = title
	}
	if id, ok := fields["id"].(string); ok && strings.TrimSpace(id) != "" {
		nf.Meta.ID = id
	}
	nf.Meta.Aliases = extractAliases(fields)
}

// splitFrontmatter separates a leading YAML front matter block delimited
// by --- lines. Missing or unterminated blocks leave the whole content
// as body; malformed YAML is discarded the same way.
func splitFrontmatter(content string) (map[string]interface{}, string) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, content
	}

	var fields map[string]interface{}
	raw := strings.Join(lines[1:end], "\n")
	if err := yaml.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, content
	}

	bodyLines := lines[end+1:]
	if len(bodyLines) > 0 && strings.TrimSpace(bodyLines[0]) == "" {
		bodyLines = bodyLines[1:]
	}
	return fields, strings.Join(bodyLines, "\n")
}

// extractAliases pulls declared aliases from front matter. A list under
// "aliases" takes precedence over a singular "alias" string; list
// entries must be non-empty strings, the singular form is taken as-is.
func extractAliases(fields map[string]interface{}) []string {
	if raw, ok := fields["aliases"]; ok {
		items, ok := raw.([]interface{})
		if !ok {
			return nil
		}
		var aliases []string
		for _, item := range items {
			s, ok := item.(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			aliases = append(aliases, s)
		}
		return aliases
	}

	if s, ok := fields["alias"].(string); ok {
		return []string{s}
	}
	return nil
}
