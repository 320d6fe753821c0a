package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"slidecraft-backend/internal/models"
)

const (
	SecondaryPlaceholder = "补充详细数据与分析..."
	ImagePlaceholder     = "正在等待 AI 生成视觉素材..."
	UnsupportedLayout    = "布局不支持"
)

var (
	leadingMarkers = regexp.MustCompile(`^[#\-\*\s\v\p{Zs}\x{FEFF}]+`)
	edgeQuotes     = regexp.MustCompile(`^["'“”]|["'“”]$`)
)

// StripLeadingMarkers removes markdown heading, bullet and whitespace
// characters from the start of s. Full-width and no-break spaces count as
// whitespace.
func StripLeadingMarkers(s string) string {
	return leadingMarkers.ReplaceAllString(s, "")
}

// StripQuotes removes at most one quotation character from each end of s.
func StripQuotes(s string) string {
	return edgeQuotes.ReplaceAllString(s, "")
}

// SecondaryPane is the right-hand text of the two-column layout.
func SecondaryPane(s models.Slide) string {
	if s.SecondaryContent != "" {
		return s.SecondaryContent
	}
	if s.Description != "" {
		return s.Description
	}
	return SecondaryPlaceholder
}

type slideView struct {
	Slide     models.Slide
	T         models.Template
	Body      string
	Secondary string
	ImageLeft bool
	ImageURL  template.URL
	Layout    string
}

type frameView struct {
	T      models.Template
	Layout string
	Body   template.HTML
}

const (
	padding    = "p-10 md:p-14"
	titleStyle = "text-4xl md:text-5xl font-bold mb-8"
	textStyle  = "text-lg md:text-xl leading-relaxed whitespace-pre-wrap opacity-90"
)

var slideTemplates = template.Must(template.New("slide").Parse(`
{{define "frame"}}<div class="slide-frame aspect-[16/9] w-full transition-all duration-500 rounded-2xl shadow-2xl border {{.T.BorderClass}} overflow-hidden" style="font-family: {{.T.FontFamily}}" data-layout="{{.Layout}}">{{.Body}}</div>{{end}}

{{define "title"}}<div class="flex flex-col items-center justify-center h-full text-center ` + padding + ` {{.T.BgClass}}">
<h1 class="` + titleStyle + ` {{.T.TextClass}} mb-6 tracking-tight">{{.Slide.Title}}</h1>
<div class="w-24 h-1.5 {{.T.AccentClass}} mb-8 rounded-full"></div>
<div class="` + textStyle + ` {{.T.TextClass}}">{{.Body}}</div>
</div>{{end}}

{{define "content"}}<div class="flex flex-col h-full ` + padding + ` {{.T.BgClass}}">
<h2 class="` + titleStyle + ` {{.T.TextClass}} border-b {{.T.BorderClass}} pb-6 mb-8">{{.Slide.Title}}</h2>
<div class="flex-1 overflow-auto ` + textStyle + ` {{.T.TextClass}}">{{.Body}}</div>
</div>{{end}}

{{define "two-column"}}<div class="flex flex-col h-full ` + padding + ` {{.T.BgClass}}">
<h2 class="` + titleStyle + ` {{.T.TextClass}} border-b {{.T.BorderClass}} pb-6 mb-8">{{.Slide.Title}}</h2>
<div class="flex-1 grid grid-cols-2 gap-12 overflow-hidden">
<div class="` + textStyle + ` {{.T.TextClass}}">{{.Body}}</div>
<div class="` + textStyle + ` {{.T.TextClass}} p-6 rounded-xl border {{.T.BorderClass}} bg-black/5">{{.Secondary}}</div>
</div>
</div>{{end}}

{{define "image"}}<div class="flex h-full {{.T.BgClass}} overflow-hidden {{if .ImageLeft}}flex-row{{else}}flex-row-reverse{{end}}">
<div class="w-1/2 relative bg-black/5 flex items-center justify-center">
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.Slide.Title}}" class="absolute inset-0 w-full h-full object-cover">{{else}}<div class="p-8 text-center text-sm italic opacity-40 {{.T.TextClass}}">` + ImagePlaceholder + `</div>{{end}}
</div>
<div class="w-1/2 ` + padding + ` flex flex-col">
<h2 class="` + titleStyle + ` {{.T.TextClass}}">{{.Slide.Title}}</h2>
<div class="flex-1 overflow-auto ` + textStyle + ` {{.T.TextClass}}">{{.Body}}</div>
</div>
</div>{{end}}

{{define "quote"}}<div class="flex flex-col items-center justify-center h-full ` + padding + ` {{.T.AccentClass}} text-white">
<div class="text-7xl mb-6 opacity-40 font-serif">"</div>
<blockquote class="text-3xl font-medium italic text-center leading-relaxed mb-8 max-w-3xl">{{.Body}}</blockquote>
<div class="w-16 h-1 bg-white/40 mb-4"></div>
<cite class="text-xl font-bold">— {{.Slide.Title}}</cite>
</div>{{end}}

{{define "unsupported"}}<div class="flex items-center justify-center h-full {{.T.BgClass}} {{.T.TextClass}}" data-unsupported-layout="{{.Layout}}">` + UnsupportedLayout + `</div>{{end}}
`))

// layoutTemplate maps a layout to its template name; ok is false for
// layouts outside the enumeration.
func layoutTemplate(l models.Layout) (name string, ok bool) {
	switch l {
	case models.LayoutTitle, models.LayoutContent, models.LayoutTwoColumn, models.LayoutQuote:
		return string(l), true
	case models.LayoutImageLeft, models.LayoutImageRight:
		return "image", true
	default:
		return "unsupported", false
	}
}

func newSlideView(s models.Slide, t models.Template) slideView {
	v := slideView{
		Slide:     s,
		T:         t,
		Body:      s.Content,
		ImageLeft: s.Layout == models.LayoutImageLeft,
		ImageURL:  safeImageURL(s.ImageURL),
		Layout:    string(s.Layout),
	}
	switch s.Layout {
	case models.LayoutTitle:
		v.Body = StripLeadingMarkers(s.Content)
	case models.LayoutTwoColumn:
		v.Secondary = SecondaryPane(s)
	case models.LayoutQuote:
		v.Body = StripQuotes(s.Content)
	}
	return v
}

// safeImageURL admits the data URIs produced by image generation and plain
// web URLs; anything else is dropped so the placeholder shows instead.
func safeImageURL(u string) template.URL {
	switch {
	case strings.HasPrefix(u, "data:image/"):
		return template.URL(u)
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"):
		return template.URL(u)
	default:
		return ""
	}
}

// RenderSlide lays out one slide inside the fixed 16:9 frame. Unknown layouts
// render a visible fallback instead of failing.
func RenderSlide(s models.Slide, t models.Template) template.HTML {
	view := newSlideView(s, t)
	name, _ := layoutTemplate(s.Layout)

	var body bytes.Buffer
	if err := slideTemplates.ExecuteTemplate(&body, name, view); err != nil {
		body.Reset()
		body.WriteString(`<div class="flex items-center justify-center h-full">` + UnsupportedLayout + `</div>`)
	}

	var frame bytes.Buffer
	if err := slideTemplates.ExecuteTemplate(&frame, "frame", frameView{T: t, Layout: string(s.Layout), Body: template.HTML(body.String())}); err != nil {
		return template.HTML(fmt.Sprintf(`<div class="slide-frame">%s</div>`, template.HTMLEscapeString(UnsupportedLayout)))
	}
	return template.HTML(frame.String())
}

// ThumbnailLabel is the sidebar placeholder for a slide without imagery.
func ThumbnailLabel(index int) string {
	return fmt.Sprintf("P%d", index+1)
}

func ThumbnailTitle(s models.Slide, index int) string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("第 %d 页", index+1)
}

// Thumb is one entry of the slide sidebar.
type Thumb struct {
	Index    int
	Label    string
	Title    string
	ImageURL template.URL
	Active   bool
}

func Thumbnails(deck *models.PresentationDeck, active int) []Thumb {
	if deck == nil {
		return nil
	}
	thumbs := make([]Thumb, len(deck.Slides))
	for i, s := range deck.Slides {
		thumbs[i] = Thumb{
			Index:    i,
			Label:    ThumbnailLabel(i),
			Title:    ThumbnailTitle(s, i),
			ImageURL: safeImageURL(s.ImageURL),
			Active:   i == active,
		}
	}
	return thumbs
}
