package transform

import "strings"

// Paragraphs splits free text into paragraph blocks separated by blank
// lines. Lines within a block are trimmed and kept newline-joined.
// Empty input yields an empty list.
func Paragraphs(text string) []string {
	blocks := []string{}
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(normalized, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()

	return blocks
}

// ListSections holds bullet lists extracted from free text.
type ListSections struct {
	Responsibilities []string
	Achievements     []string
}

// Section markers, compared lowercase with any trailing colon removed.
var responsibilityMarkers = map[string]bool{
	"responsibilities":     true,
	"key responsibilities": true,
	"duties":               true,
	"duties and responsibilities": true,
}

var achievementMarkers = map[string]bool{
	"achievements":     true,
	"key achievements": true,
	"accomplishments":  true,
}

// ExtractListSections pulls responsibility and achievement bullet lists
// out of free text. Collection starts after a section marker line and
// runs until a blank line or the next marker; non-bullet lines inside a
// section are skipped.
func ExtractListSections(text string) ListSections {
	var sections ListSections

	// none / responsibilities / achievements
	current := ""

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(normalized, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			current = ""
			continue
		}

		marker := strings.ToLower(strings.TrimSuffix(trimmed, ":"))
		switch {
		case responsibilityMarkers[marker]:
			current = "responsibilities"
			continue
		case achievementMarkers[marker]:
			current = "achievements"
			continue
		}

		if current == "" {
			continue
		}

		item, ok := bulletText(trimmed)
		if !ok || item == "" {
			continue
		}
		switch current {
		case "responsibilities":
			sections.Responsibilities = append(sections.Responsibilities, item)
		case "achievements":
			sections.Achievements = append(sections.Achievements, item)
		}
	}

	return sections
}

// bulletText strips a list-item prefix from a trimmed line. Recognized
// prefixes: "•", "-", "*", "–" and numbered forms like "1." or "1)".
func bulletText(line string) (string, bool) {
	for _, prefix := range []string{"•", "–", "-", "*"} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:]), true
	}

	return "", false
}
