package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/essay-grader/internal/dto"
	"github.com/noah-isme/essay-grader/pkg/ai"
)

//go:embed templates/*.html
var templateFS embed.FS

// Notices shown above the input form.
const (
	NoticeTooShort   = "内容过短，请至少输入50个字。"
	NoticeInProgress = "AI 正在批改上一篇论文，请稍候。"
	NoticeResetFirst = "请先点击“批改另一篇论文”再提交新的论文。"
	NoticeRateLimit  = "提交过于频繁，请稍后再试。"
)

// Page is the view model for the single grading page.
type Page struct {
	AppName   string
	Model     string
	Session   dto.SessionResponse
	Draft     string
	Notice    string
	MinLength int
}

// Renderer renders the grading page from embedded templates.
type Renderer struct {
	page *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("page.html").Funcs(template.FuncMap{
		"score":      formatNumber,
		"percent":    formatPercent,
		"radarShape": radarShape,
		"radarGrid":  radarGrid,
		"radarAxes":  radarAxes,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{page: tmpl}, nil
}

// Render writes the page for the given view model.
func (r *Renderer) Render(w io.Writer, page Page) error {
	if page.MinLength == 0 {
		page.MinLength = ai.MinEssayLength
	}
	return r.page.ExecuteTemplate(w, "page.html", page)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// formatPercent keeps values above 100; the bar container clips overflow.
func formatPercent(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return "0"
	}
	return strconv.FormatFloat(value, 'f', 1, 64)
}

const (
	radarCenter = 150.0
	radarRadius = 110.0
)

// RadarLabel is an axis label placed around the radar chart.
type RadarLabel struct {
	X, Y  string
	Text  string
	Score string
}

func radarVertex(index, count int, ratio float64) (float64, float64) {
	angle := -math.Pi/2 + 2*math.Pi*float64(index)/float64(count)
	return radarCenter + radarRadius*ratio*math.Cos(angle), radarCenter + radarRadius*ratio*math.Sin(angle)
}

func polygon(count int, ratioAt func(int) float64) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		x, y := radarVertex(i, count, ratioAt(i))
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}

// radarShape plots each dimension's score relative to its full mark.
func radarShape(points []dto.RadarPoint) string {
	if len(points) < 3 {
		return ""
	}
	return polygon(len(points), func(i int) float64 {
		p := points[i]
		if p.FullMark <= 0 || p.Value < 0 {
			return 0
		}
		return math.Min(p.Value/p.FullMark, 1.2)
	})
}

func radarGrid(count int) []string {
	if count < 3 {
		return nil
	}
	rings := []float64{0.25, 0.5, 0.75, 1}
	grid := make([]string, 0, len(rings))
	for _, ring := range rings {
		r := ring
		grid = append(grid, polygon(count, func(int) float64 { return r }))
	}
	return grid
}

func radarAxes(points []dto.RadarPoint) []RadarLabel {
	if len(points) < 3 {
		return nil
	}
	labels := make([]RadarLabel, 0, len(points))
	for i, p := range points {
		x, y := radarVertex(i, len(points), 1.22)
		labels = append(labels, RadarLabel{
			X:     fmt.Sprintf("%.1f", x),
			Y:     fmt.Sprintf("%.1f", y),
			Text:  p.Subject,
			Score: formatNumber(p.Value) + " / " + formatNumber(p.FullMark),
		})
	}
	return labels
}
