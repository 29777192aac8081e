package docpipe

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// maxXMLDepth bounds element nesting in office document XML. Real
// documents stay far below this; exceeding it indicates an XML bomb.
const maxXMLDepth = 256

// extractDocx reads word/document.xml from the .docx ZIP archive and
// streams its paragraphs into sections. Heading detection goes through
// the paragraph style (pStyle).
func extractDocx(path string) (string, []Section, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var (
		sections []Section
		title    string
		para     strings.Builder
		inPara   bool
		style    string
		depth    int
	)

	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return "", nil, fmt.Errorf("document.xml nesting depth exceeds %d", maxXMLDepth)
			}
			switch {
			case t.Name.Local == "p":
				inPara = true
				para.Reset()
				style = ""
			case t.Name.Local == "pStyle" && inPara:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			}

		case xml.CharData:
			if inPara {
				para.Write(t)
			}

		case xml.EndElement:
			depth--
			if t.Name.Local != "p" || !inPara {
				continue
			}
			inPara = false
			text := strings.TrimSpace(para.String())
			if text == "" {
				continue
			}
			if level := headingLevelFromStyle(style); level > 0 {
				if title == "" {
					title = text
				}
				sections = append(sections, Section{
					Title: text,
					Level: level,
					Text:  text,
					Type:  "heading",
				})
			} else {
				sections = append(sections, Section{Text: text, Type: "paragraph"})
			}
		}
	}

	return title, sections, nil
}

// headingLevelFromStyle maps a Word paragraph style name to a heading
// level. "Title" counts as level 1, "Subtitle" as 2, "HeadingN" as N.
// Returns 0 for body styles.
func headingLevelFromStyle(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	if rest, ok := strings.CutPrefix(lower, "heading"); ok {
		if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
			return int(rest[0] - '0')
		}
	}
	return 0
}
