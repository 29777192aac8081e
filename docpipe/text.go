package docpipe

import (
	"os"
	"strings"
	"unicode"
)

// extractText reads a plain text file as a single paragraph section.
func extractText(path string) (string, []Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	text := collapseWhitespace(string(data))
	if text == "" {
		return "", nil, nil
	}
	return titleFrom(text), []Section{{Text: text, Type: "paragraph"}}, nil
}

// extractMarkdown splits a Markdown file into heading and paragraph
// sections. Only ATX headings (#) are recognized; the first heading
// becomes the document title.
func extractMarkdown(path string) (string, []Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	var (
		sections []Section
		title    string
		para     strings.Builder
	)
	endParagraph := func() {
		if text := strings.TrimSpace(para.String()); text != "" {
			sections = append(sections, Section{Text: text, Type: "paragraph"})
		}
		para.Reset()
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") {
			endParagraph()
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			if level > 6 {
				level = 6
			}
			heading := strings.TrimSpace(strings.Trim(trimmed, "# "))
			if heading == "" {
				continue
			}
			if title == "" {
				title = heading
			}
			sections = append(sections, Section{
				Title: heading,
				Level: level,
				Text:  heading,
				Type:  "heading",
			})
			continue
		}

		if trimmed == "" {
			endParagraph()
			continue
		}
		if para.Len() > 0 {
			para.WriteByte(' ')
		}
		para.WriteString(trimmed)
	}
	endParagraph()

	if title == "" && len(sections) > 0 {
		title = titleFrom(sections[0].Text)
	}
	return title, sections, nil
}

// collapseWhitespace folds any whitespace run into a single space.
func collapseWhitespace(text string) string {
	var sb strings.Builder
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !inSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		inSpace = false
	}
	return strings.TrimSpace(sb.String())
}

// titleFrom derives a short title from the first line of text.
func titleFrom(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
