package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"slidecraft-backend/internal/controller"
	"slidecraft-backend/internal/services"
)

func TestPage_EmptyWorkspace(t *testing.T) {
	h, ctrl := newTestHandler(t, &stubStudio{}, "key")

	rr := httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, "AI 增强深度 PPT 创作")
	assert.Contains(t, body, "0 P")
	assert.NotContains(t, body, "选择 API 密钥")
	assert.False(t, ctrl.State().KeySelectionRequired)
}

func TestPage_OpensKeyDialogWithoutKey(t *testing.T) {
	h, ctrl := newTestHandler(t, &stubStudio{}, "")

	rr := httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rr.Body.String(), "选择 API 密钥")
	assert.True(t, ctrl.State().KeySelectionRequired)
}

func TestPage_PartialWithDeck(t *testing.T) {
	studio := &stubStudio{analysis: "### 概述\n- 要点"}
	h, ctrl := newTestHandler(t, studio, "key")
	require.NoError(t, ctrl.GenerateDeck(context.Background(), "topic"))
	require.NoError(t, ctrl.SelectSlide(1))
	require.NoError(t, ctrl.AnalyzeImage(context.Background(), []byte{1}, "image/png"))

	rr := httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/?partial=1", nil))

	body := rr.Body.String()
	assert.NotContains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "22 P")
	assert.Equal(t, 22, strings.Count(body, `data-action="select-slide"`))
	assert.Contains(t, body, `data-layout="two-column"`)
	assert.Contains(t, body, "<strong>notes</strong>", "speaker notes rendered as markdown")
	assert.Contains(t, body, "视觉分析报告")
	assert.Contains(t, body, ">概述</h4>")
	assert.Contains(t, body, "生成视觉")
}

func TestPage_ErrorBanner(t *testing.T) {
	studio := &stubStudio{}
	h, ctrl := newTestHandler(t, studio, "key")
	require.NoError(t, ctrl.GenerateDeck(context.Background(), "topic"))
	ctrl.SetUseSearch(true)

	rr := httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/?partial=1", nil))
	assert.NotContains(t, rr.Body.String(), `data-action="dismiss-error"`)
	assert.Contains(t, rr.Body.String(), `id="use-search" type="checkbox" checked`)

	studio.imageErr = errors.New("quota")
	require.Error(t, ctrl.GenerateImage(context.Background()))

	rr = httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/?partial=1", nil))
	assert.Contains(t, rr.Body.String(), `data-action="dismiss-error"`)
	assert.Contains(t, rr.Body.String(), "图片生成失败")
}

func TestPage_PartialRefreshDoesNotPushState(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	pushes := 0
	ctrl := controller.New(func(ctx context.Context, key string) (controller.Studio, error) {
		return &stubStudio{}, nil
	}, controller.NewSessionKeys(""), controller.Options{Log: log, OnChange: func(controller.State) { pushes++ }})
	h := NewWorkspaceHandler(oneSession{ctrl}, services.NewFileExtractService(log), 1, log)

	rr := httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 1, pushes, "first full load opens the key dialog")

	for i := 0; i < 3; i++ {
		rr = httptest.NewRecorder()
		h.Page(rr, httptest.NewRequest(http.MethodGet, "/?partial=1", nil))
		assert.Contains(t, rr.Body.String(), "选择 API 密钥")
	}
	h.Page(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 1, pushes)
}

func TestPage_ShowsRequestErrors(t *testing.T) {
	h, _ := newTestHandler(t, &stubStudio{}, "key")

	rr := httptest.NewRecorder()
	h.Page(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rr.Body.String()
	assert.Contains(t, body, `id="notice"`)
	assert.Contains(t, body, "body.error.fields")
	assert.Contains(t, body, "body.error.message")
}
