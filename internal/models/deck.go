package models

import "fmt"

// Layout selects the rendering variant of a slide.
type Layout string

const (
	LayoutTitle      Layout = "title"
	LayoutContent    Layout = "content"
	LayoutTwoColumn  Layout = "two-column"
	LayoutImageLeft  Layout = "image-left"
	LayoutImageRight Layout = "image-right"
	LayoutQuote      Layout = "quote"
)

// Layouts lists every recognized layout in declaration order. The outline
// response schema uses it as its enum.
var Layouts = []Layout{
	LayoutTitle,
	LayoutContent,
	LayoutTwoColumn,
	LayoutImageLeft,
	LayoutImageRight,
	LayoutQuote,
}

func (l Layout) Valid() bool {
	for _, known := range Layouts {
		if l == known {
			return true
		}
	}
	return false
}

// HasImage reports whether the layout reserves a pane for slide imagery.
func (l Layout) HasImage() bool {
	return l == LayoutImageLeft || l == LayoutImageRight
}

type Slide struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Content          string `json:"content"`                     // markdown bullet text
	Description      string `json:"description,omitempty"`       // speaker notes
	SecondaryContent string `json:"secondary_content,omitempty"` // right pane of two-column
	Layout           Layout `json:"layout"`
	ImageURL         string `json:"image_url,omitempty"` // data URI once generated
	ImagePrompt      string `json:"image_prompt,omitempty"`
}

// ImageRequestPrompt is the text sent for image generation: the visual
// description when present, the title otherwise.
func (s Slide) ImageRequestPrompt() string {
	if s.ImagePrompt != "" {
		return s.ImagePrompt
	}
	return s.Title
}

type PresentationDeck struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	TemplateID string  `json:"template_id"`
	Slides     []Slide `json:"slides"`
}

// Clone returns a deck whose slide slice can be modified without touching d.
func (d *PresentationDeck) Clone() *PresentationDeck {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Slides = make([]Slide, len(d.Slides))
	copy(cp.Slides, d.Slides)
	return &cp
}

type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BgClass     string `json:"bg_class"`
	TextClass   string `json:"text_class"`
	AccentClass string `json:"accent_class"`
	BorderClass string `json:"border_class"`
	FontFamily  string `json:"font_family"`
}

type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

var ImageSizes = []ImageSize{ImageSize1K, ImageSize2K, ImageSize4K}

func ParseImageSize(s string) (ImageSize, error) {
	for _, size := range ImageSizes {
		if string(size) == s {
			return size, nil
		}
	}
	return "", fmt.Errorf("unsupported image size %q", s)
}

// Source is a citation extracted from search grounding metadata.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type GenerationState struct {
	IsGenerating bool   `json:"is_generating"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

type AttachedFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
	Pages    int    `json:"pages,omitempty"` // PDF page count when known
}
