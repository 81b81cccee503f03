// Package richtext builds and reads the editor document shape the CMS stores
// for long-form fields (artist bios, concert descriptions).
package richtext

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Document is the root wrapper persisted as JSON.
type Document struct {
	Root Root `json:"root"`
}

// Root holds the top-level blocks of a document.
type Root struct {
	Type      string  `json:"type"`
	Children  []Block `json:"children"`
	Direction string  `json:"direction"`
	Format    string  `json:"format"`
	Indent    int     `json:"indent"`
	Version   int     `json:"version"`
}

// Block is a paragraph-level node.
type Block struct {
	Type       string `json:"type"`
	Children   []Text `json:"children"`
	Direction  string `json:"direction"`
	Format     string `json:"format"`
	Indent     int    `json:"indent"`
	TextFormat int    `json:"textFormat"`
	TextStyle  string `json:"textStyle"`
	Version    int    `json:"version"`
}

// Text is a leaf run of plain text.
type Text struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Detail  int    `json:"detail"`
	Format  int    `json:"format"`
	Mode    string `json:"mode"`
	Style   string `json:"style"`
	Version int    `json:"version"`
}

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// FromText converts plain text into a document, one paragraph per
// blank-line separated chunk. Empty input yields a single empty paragraph.
func FromText(text string) Document {
	var blocks []Block
	for _, chunk := range blankLine.Split(text, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		blocks = append(blocks, paragraph(chunk))
	}
	if len(blocks) == 0 {
		blocks = []Block{paragraph("")}
	}

	return Document{Root: Root{
		Type:      "root",
		Children:  blocks,
		Direction: "ltr",
		Format:    "",
		Indent:    0,
		Version:   1,
	}}
}

func paragraph(text string) Block {
	return Block{
		Type: "paragraph",
		Children: []Text{{
			Type:    "text",
			Text:    text,
			Mode:    "normal",
			Version: 1,
		}},
		Direction: "ltr",
		Version:   1,
	}
}

// PlainText flattens a document back to blank-line separated paragraphs.
func (d Document) PlainText() string {
	paragraphs := make([]string, 0, len(d.Root.Children))
	for _, block := range d.Root.Children {
		var sb strings.Builder
		for _, run := range block.Children {
			sb.WriteString(run.Text)
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// IsEmpty reports whether the document carries no visible text.
func (d Document) IsEmpty() bool {
	return d.PlainText() == ""
}

// Value implements driver.Valuer so documents can be written to JSONB columns.
func (d Document) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner. NULL scans into the zero document.
func (d *Document) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("richtext: cannot scan %T", src)
	}
}
