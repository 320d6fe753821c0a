package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"
)

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockListItem:
		return "list_item"
	default:
		return "paragraph"
	}
}

func (k BlockKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Block is one classified line of an analysis report.
type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

const headingMarker = "###"

var bulletPrefix = regexp.MustCompile(`^[-\*\s]+`)

// ClassifyLine applies the three report rules in order: heading marker,
// bullet marker, paragraph.
func ClassifyLine(line string) Block {
	if strings.HasPrefix(line, headingMarker) {
		return Block{Kind: BlockHeading, Text: strings.TrimSpace(strings.TrimPrefix(line, headingMarker))}
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") {
		return Block{Kind: BlockListItem, Text: bulletPrefix.ReplaceAllString(line, "")}
	}
	return Block{Kind: BlockParagraph, Text: line}
}

// FormatAnalysis classifies every line of text. Blank lines become empty
// paragraphs so that the output has one block per input line.
func FormatAnalysis(text string) []Block {
	lines := strings.Split(text, "\n")
	blocks := make([]Block, len(lines))
	for i, line := range lines {
		blocks[i] = ClassifyLine(strings.TrimSuffix(line, "\r"))
	}
	return blocks
}

var analysisTemplate = template.Must(template.New("analysis").Parse(
	`{{range .}}{{if eq .Kind 1}}<h4 class="text-indigo-600 font-black mt-4 mb-2 border-l-4 border-indigo-600 pl-4">{{.Text}}</h4>` +
		`{{else if eq .Kind 2}}<li class="ml-4 text-gray-600 font-medium mb-1">{{.Text}}</li>` +
		`{{else}}<p class="mb-2 text-gray-600 leading-relaxed">{{.Text}}</p>{{end}}{{end}}`))

func RenderAnalysis(text string) template.HTML {
	var buf bytes.Buffer
	if err := analysisTemplate.Execute(&buf, FormatAnalysis(text)); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(text) + "</p>")
	}
	return template.HTML(buf.String())
}
