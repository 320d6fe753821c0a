package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"slidecraft-backend/internal/models"
)

const (
	MinOutlineSlides = 20
	MaxOutlineSlides = 25

	outlineEmptyMessage = "AI 未返回内容"
	outlineParseMessage = "生成多页大纲时出错，请尝试缩短主题或检查文档格式"
	sourceDefaultTitle  = "参考链接"
)

type OutlineParams struct {
	Topic     string
	UseSearch bool
	Document  *DocumentPart
}

// DocumentPart is a reference document attached to the outline request.
type DocumentPart struct {
	Data     []byte
	MimeType string
}

type Outline struct {
	Slides  []models.Slide
	Sources []models.Source
}

// outlineSlide mirrors one element of the declared response schema.
type outlineSlide struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Layout      string `json:"layout"`
	ImagePrompt string `json:"imagePrompt"`
}

func buildOutlinePrompt(topic string, withDocument, withSearch bool) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("请围绕主题 \"%s\" 生成一份深度且极具视觉冲击力的中文演示文稿大纲，总页数必须在 %d 到 %d 页之间。\n\n",
		topic, MinOutlineSlides, MaxOutlineSlides))

	if withDocument {
		b.WriteString("请参考上传的文档内容进行生成，确保内容的准确性与深度。\n")
	}
	if withSearch {
		b.WriteString("请使用联网搜索获取最新的行业动态、数据和事实来增强内容。\n")
	}

	b.WriteString(`
设计原则：
1. **图多文字少**：每页文字必须极度精简，适合大屏展示，避免大段文字。
2. **高度结构化**：从宏观到微观，分章节进行深度探讨。
3. **视觉优先**：为每一页提供精准的英文绘画提示词（imagePrompt）。

每页对象结构：
1. title: 页面标题
2. content: Markdown 格式的精简要点（严禁超过 4 个要点，每个要点不超过 15 字）
3. description: 详细的演讲备注或深度背景
`)

	layouts := make([]string, len(models.Layouts))
	for i, l := range models.Layouts {
		layouts[i] = "'" + string(l) + "'"
	}
	b.WriteString(fmt.Sprintf("4. layout: 布局（%s）\n", strings.Join(layouts, ", ")))
	b.WriteString("5. imagePrompt: 针对该页主题的高质量英文视觉描述词。\n")

	return b.String()
}

func outlineSchema() *genai.Schema {
	layouts := make([]string, len(models.Layouts))
	for i, l := range models.Layouts {
		layouts[i] = string(l)
	}

	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":       {Type: genai.TypeString},
				"content":     {Type: genai.TypeString},
				"description": {Type: genai.TypeString},
				"layout":      {Type: genai.TypeString, Enum: layouts},
				"imagePrompt": {Type: genai.TypeString},
			},
			PropertyOrdering: []string{"title", "content", "description", "layout", "imagePrompt"},
			Required:         []string{"title", "content", "layout", "imagePrompt", "description"},
		},
	}
}

// BuildOutlineRequest turns a topic and its optional augmentations into the
// single outline generation request.
func BuildOutlineRequest(p OutlineParams, thinkingBudget int32) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	topic := strings.TrimSpace(p.Topic)
	if topic == "" {
		return nil, nil, &ValidationError{Fields: map[string]string{"topic": "Topic is required"}}
	}

	withDocument := p.Document != nil && len(p.Document.Data) > 0
	parts := []*genai.Part{genai.NewPartFromText(buildOutlinePrompt(topic, withDocument, p.UseSearch))}
	if withDocument {
		parts = append(parts, genai.NewPartFromBytes(p.Document.Data, p.Document.MimeType))
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   outlineSchema(),
	}
	if thinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](thinkingBudget)}
	}
	if p.UseSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config, nil
}

// ParseOutlineResponse converts the raw response into slides with fresh ids.
// No partial outline is returned on failure.
func ParseOutlineResponse(resp *genai.GenerateContentResponse) (*Outline, error) {
	raw := strings.TrimSpace(responseText(resp))
	if raw == "" {
		return nil, &GenerationError{Message: outlineEmptyMessage}
	}

	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var items []outlineSlide
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &GenerationError{Message: outlineParseMessage, Err: fmt.Errorf("decode outline: %w", err)}
	}
	if len(items) == 0 {
		return nil, &GenerationError{Message: outlineParseMessage, Err: fmt.Errorf("outline has no slides")}
	}

	slides := make([]models.Slide, len(items))
	for i, item := range items {
		slides[i] = models.Slide{
			ID:          "slide-" + uuid.NewString(),
			Title:       item.Title,
			Content:     item.Content,
			Description: item.Description,
			Layout:      models.Layout(item.Layout),
			ImagePrompt: item.ImagePrompt,
		}
	}

	return &Outline{Slides: slides, Sources: extractSources(resp)}, nil
}

func extractSources(resp *genai.GenerateContentResponse) []models.Source {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil || len(meta.GroundingChunks) == 0 {
		return nil
	}

	var sources []models.Source
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil {
			continue
		}
		var src models.Source
		switch {
		case chunk.Web != nil:
			src = models.Source{Title: chunk.Web.Title, URL: chunk.Web.URI}
		case chunk.RetrievedContext != nil:
			src = models.Source{Title: chunk.RetrievedContext.Title, URL: chunk.RetrievedContext.URI}
		default:
			continue
		}
		if src.URL == "" {
			continue
		}
		if src.Title == "" {
			src.Title = sourceDefaultTitle
		}
		sources = append(sources, src)
	}
	return sources
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	return text.String()
}
