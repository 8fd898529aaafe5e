package web

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/essay-grader/internal/dto"
	"github.com/noah-isme/essay-grader/pkg/ai"
)

func render(t *testing.T, page Page) string {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, page))
	return buf.String()
}

func sampleReport(total float64) *dto.EvaluationReport {
	report := dto.NewEvaluationReport(ai.EvaluationResult{
		TotalScore: total,
		IsPass:     total >= 45,
		Summary:    "论述完整，结构清晰。",
		Dimensions: []ai.DimensionScore{
			{Name: "切合题意", Score: 12, FullMark: 15, Comment: "紧扣主题"},
			{Name: "项目背景", Score: 8, FullMark: 10, Comment: "背景交代清楚"},
			{Name: "理论与实践结合", Score: 18, FullMark: 25, Comment: "结合较好"},
			{Name: "逻辑结构", Score: 10, FullMark: 15, Comment: "层次分明"},
			{Name: "语言与格式", Score: 7, FullMark: 10, Comment: "语言通顺"},
		},
		Strengths:  []string{"结构完整"},
		Weaknesses: []string{"数据不足"},
		Suggestions: []ai.SuggestionItem{
			{Point: "补充量化数据", Quote: "我们采用了敏捷开发方法"},
			{Point: "结尾需要总结", Quote: ""},
		},
	})
	return &report
}

func TestRenderIdleForm(t *testing.T) {
	html := render(t, Page{AppName: "Essay Grader", Session: dto.SessionResponse{Status: "IDLE", CanSubmit: true}})

	assert.Contains(t, html, `action="/essays"`)
	assert.Contains(t, html, "提交 AI 批改")
	assert.Contains(t, html, "当前字数")
	assert.Contains(t, html, "内容过短，请至少输入50个字。")
	assert.NotContains(t, html, `id="report"`)
	assert.NotContains(t, html, `http-equiv="refresh"`)
}

func TestRenderEscapesDraft(t *testing.T) {
	html := render(t, Page{Session: dto.SessionResponse{Status: "IDLE", CanSubmit: true}, Draft: "<script>alert(1)</script>"})

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestRenderAnalyzingRefreshes(t *testing.T) {
	html := render(t, Page{Session: dto.SessionResponse{Status: "ANALYZING"}})

	assert.Contains(t, html, `http-equiv="refresh"`)
	assert.Contains(t, html, "正在深度分析")
	assert.Contains(t, html, "disabled")
}

func TestRenderErrorBanner(t *testing.T) {
	html := render(t, Page{Session: dto.SessionResponse{
		Status:       "ERROR",
		ErrorMessage: "AI 批改服务暂时不可用，请稍后重试。",
		CanSubmit:    true,
	}})

	assert.Contains(t, html, `role="alert"`)
	assert.Contains(t, html, "AI 批改服务暂时不可用，请稍后重试。")
	assert.Contains(t, html, `action="/essays"`)
}

func TestRenderPassedReport(t *testing.T) {
	html := render(t, Page{Session: dto.SessionResponse{Status: "SUCCESS", Report: sampleReport(55)}})

	assert.Contains(t, html, "PASSED")
	assert.Contains(t, html, "太棒了，你已经达标！")
	assert.Contains(t, html, "/ 75")
	assert.Contains(t, html, "“我们采用了敏捷开发方法”")
	assert.Contains(t, html, "width: 80.0%")
	assert.Contains(t, html, `action="/reset"`)
	assert.Contains(t, html, "<polygon")
	assert.Equal(t, 1, strings.Count(html, "<blockquote>"))
	assert.NotContains(t, html, "结构完整")
	assert.NotContains(t, html, "数据不足")
}

func TestRenderFailedReport(t *testing.T) {
	html := render(t, Page{Session: dto.SessionResponse{Status: "SUCCESS", Report: sampleReport(44)}})

	assert.Contains(t, html, "FAILED")
	assert.Contains(t, html, "差一点点，再接再厉！")
	assert.NotContains(t, html, "PASSED")
}

func TestRadarHelpers(t *testing.T) {
	points := []dto.RadarPoint{
		{Subject: "a", Value: 5, FullMark: 10},
		{Subject: "b", Value: 0, FullMark: 0},
	}
	assert.Empty(t, radarShape(points))
	assert.Nil(t, radarGrid(2))

	points = append(points, dto.RadarPoint{Subject: "c", Value: 10, FullMark: 10})
	shape := radarShape(points)
	assert.Len(t, strings.Fields(shape), 3)
	assert.Len(t, radarGrid(3), 4)
	assert.Equal(t, "150.0,40.0", strings.Fields(polygon(3, func(int) float64 { return 1 }))[0])
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "120.0", formatPercent(120))
	assert.Equal(t, "0", formatPercent(-5))
	assert.Equal(t, "66.7", formatPercent(200.0/3))
}
