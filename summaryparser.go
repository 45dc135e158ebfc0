package pdfquiz

import (
	"fmt"
	"strings"
)

// ParseSummary turns a narrative summary into titled sections. Lines starting
// with -, • or * are points of the most recent title line; titles that collect
// no points are dropped. An empty result falls back to the placeholder summary.
func ParseSummary(raw string) (sections []SummarySection) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warnw("Error parsing summary text, using placeholder", "error", fmt.Sprint(r))
			sections = PlaceholderSummary()
		}
	}()

	var current *SummarySection
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !isBulletLine(trimmed) {
			if current != nil && len(current.Points) > 0 {
				sections = append(sections, *current)
			}
			current = &SummarySection{
				Title:  trimTitle(trimmed),
				Points: []string{},
			}
			continue
		}

		if current == nil {
			continue
		}
		point := strings.TrimSpace(trimBulletMarker(trimmed))
		if point == "" {
			continue
		}
		current.Points = append(current.Points, point)
	}

	if current != nil && len(current.Points) > 0 {
		sections = append(sections, *current)
	}

	if len(sections) == 0 {
		VerboseLog("Summary text produced no sections, using placeholder")
		return PlaceholderSummary()
	}
	return sections
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "*")
}

func trimBulletMarker(line string) string {
	for _, marker := range []string{"-", "•", "*"} {
		if strings.HasPrefix(line, marker) {
			return line[len(marker):]
		}
	}
	return line
}

// trimTitle strips a single trailing ':' or '.', never leaving an empty title
func trimTitle(line string) string {
	if len(line) > 1 && (strings.HasSuffix(line, ":") || strings.HasSuffix(line, ".")) {
		return line[:len(line)-1]
	}
	return line
}

// FormatSummary renders sections back into the plain text form used in prompts
func FormatSummary(sections []SummarySection) string {
	blocks := make([]string, 0, len(sections))
	for _, section := range sections {
		var sb strings.Builder
		sb.WriteString(section.Title)
		sb.WriteString(":")
		for _, point := range section.Points {
			sb.WriteString("\n- ")
			sb.WriteString(point)
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}
