package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	analysisInstruction = "请用中文详细分析这张图片。请分以下几个板块回复：### 1. 图片内容概述\n### 2. 在演示文稿中的适用场景\n### 3. 设计优化建议\n### 4. 推荐配文（标题与要点）"
	analysisPlaceholder = "未能生成分析结果。"
	analysisFailed      = "分析失败"
)

// visionModel is satisfied by *genai.GenerativeModel.
type visionModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VisionService produces presentation-oriented analysis reports for still images.
type VisionService struct {
	client *genai.Client
	model  visionModel
	rate   *RateGate
	log    *zap.SugaredLogger
}

func NewVisionService(ctx context.Context, apiKey, modelName string, rate *RateGate, log *zap.SugaredLogger) (*VisionService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini vision client: %w", err)
	}

	svc := newVisionService(client.GenerativeModel(modelName), rate, log)
	svc.client = client
	return svc, nil
}

func newVisionService(model visionModel, rate *RateGate, log *zap.SugaredLogger) *VisionService {
	if rate == nil {
		rate = NewRateGate(1)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &VisionService{model: model, rate: rate, log: log}
}

func (s *VisionService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// AnalyzeImage pairs the image with the fixed four-section instruction and
// returns the report text.
func (s *VisionService) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Fields: map[string]string{"file": "Image is empty"}}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	if err := s.rate.Acquire(ctx); err != nil {
		return "", &AnalysisError{Message: analysisFailed, Err: err}
	}
	defer s.rate.Release()

	resp, err := s.model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(analysisInstruction),
	)
	if err != nil {
		return "", &AnalysisError{Message: analysisFailed, Err: fmt.Errorf("Gemini API error: %w", err)}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		s.log.Warn("Gemini returned empty analysis. Using placeholder.")
		return analysisPlaceholder, nil
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
