package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// RubricTotal is the maximum score across all rubric dimensions.
	RubricTotal = 75
	// PassThreshold is the minimum total score that counts as a pass.
	PassThreshold = 45
	// DefaultTemperature keeps grading output close to deterministic.
	DefaultTemperature = float32(0.3)
	// JSONMimeType is the response MIME type requested from the model.
	JSONMimeType = "application/json"
)

// resolveTemperature applies DefaultTemperature to an unset temperature.
func resolveTemperature(t *float32) (float32, error) {
	if t == nil {
		return DefaultTemperature, nil
	}
	if *t < 0 || *t > 2 {
		return 0, fmt.Errorf("temperature %.2f out of range [0, 2]", *t)
	}
	return *t, nil
}

// RubricDimension describes one weighted axis of the grading rubric.
type RubricDimension struct {
	Name      string
	FullMark  int
	Criterion string
}

// Rubric lists the five grading dimensions in prompt order.
var Rubric = []RubricDimension{
	{Name: "切合题意", FullMark: 15, Criterion: "是否紧扣项目管理主题，是否回应了子题目要求。"},
	{Name: "项目背景", FullMark: 10, Criterion: "项目背景是否真实、具体，金额、工期、角色描述是否合理。"},
	{Name: "理论与实践结合", FullMark: 25, Criterion: `是否正确运用了PMBOK（项目管理知识体系）的过程组和知识领域，是否有具体的实践举措，而非单纯堆砌理论。"我"在项目中的作用是否突出。`},
	{Name: "逻辑结构", FullMark: 15, Criterion: "摘要是否概括得当，正文结构（背景、过渡、核心过程、结尾）是否清晰严谨。"},
	{Name: "语言与格式", FullMark: 10, Criterion: "语言是否流畅，专业术语是否准确，字数是否符合一般要求。"},
}

// BuildPrompt renders the grading instruction with the rubric and the literal essay text.
func BuildPrompt(essay string) string {
	var sb strings.Builder
	sb.WriteString("你是一位资深的中国计算机技术与软件专业技术资格（水平）考试（软考）高级-信息系统项目管理师（高项）阅卷专家。\n")
	sb.WriteString("请根据以下标准对用户提供的论文进行严格批改。\n\n")
	fmt.Fprintf(&sb, "**评分标准 (满分%d分，%d分及格):**\n", RubricTotal, PassThreshold)
	for i, dim := range Rubric {
		fmt.Fprintf(&sb, "%d. **%s (%d分):** %s\n", i+1, dim.Name, dim.FullMark, dim.Criterion)
	}
	sb.WriteString("\n**任务:**\n")
	sb.WriteString("阅读提供的论文内容，输出JSON格式的评分报告。\n\n")
	sb.WriteString("**特别要求:**\n")
	sb.WriteString(`在给出【建议】(suggestions)时，请务必从原文中摘录出具体的句子(quote)来佐证你的建议。例如："项目背景描述过于笼统"，并在quote字段中引用"本项目建设规模很大..."这句话。如果建议是针对全文的，quote可以留空。`)
	sb.WriteString("\n\n**论文内容:**\n")
	sb.WriteString(essay)
	sb.WriteString("\n")
	return sb.String()
}

// Schema describes the structured output requested from the model.
// Type names follow the Gemini API (OBJECT, ARRAY, STRING, NUMBER, BOOLEAN).
type Schema struct {
	Type             string
	Description      string
	Properties       map[string]*Schema
	Items            *Schema
	Required         []string
	PropertyOrdering []string
}

// Schema type names.
const (
	TypeObject  = "OBJECT"
	TypeArray   = "ARRAY"
	TypeString  = "STRING"
	TypeNumber  = "NUMBER"
	TypeBoolean = "BOOLEAN"
)

var evaluationFields = []string{"totalScore", "isPass", "summary", "dimensions", "strengths", "weaknesses", "suggestions"}

// ResponseSchema returns the evaluation schema declared to the model.
func ResponseSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"totalScore": {Type: TypeNumber, Description: "总分 (满分75分). 及格分45."},
			"isPass":     {Type: TypeBoolean, Description: "是否及格 (score >= 45)"},
			"summary":    {Type: TypeString, Description: "总体评价，200字以内"},
			"dimensions": {
				Type:        TypeArray,
				Description: "5个维度的详细评分",
				Items: &Schema{
					Type: TypeObject,
					Properties: map[string]*Schema{
						"name":     {Type: TypeString, Description: "维度名称，例如：项目背景、理论应用、逻辑结构、语言表达、切合题意"},
						"score":    {Type: TypeNumber, Description: "该维度的得分"},
						"fullMark": {Type: TypeNumber, Description: "该维度满分"},
						"comment":  {Type: TypeString, Description: "针对该维度的简短评语"},
					},
					Required:         []string{"name", "score", "fullMark", "comment"},
					PropertyOrdering: []string{"name", "score", "fullMark", "comment"},
				},
			},
			"strengths": {
				Type:        TypeArray,
				Description: "论文的优点列表",
				Items:       &Schema{Type: TypeString},
			},
			"weaknesses": {
				Type:        TypeArray,
				Description: "论文的不足之处列表",
				Items:       &Schema{Type: TypeString},
			},
			"suggestions": {
				Type:        TypeArray,
				Description: "具体的修改和优化建议，必须包含原文引用",
				Items: &Schema{
					Type: TypeObject,
					Properties: map[string]*Schema{
						"point": {Type: TypeString, Description: "具体的修改建议"},
						"quote": {Type: TypeString, Description: "原文中存在问题的具体句子引用，如果没有具体句子则留空字符串"},
					},
					Required:         []string{"point", "quote"},
					PropertyOrdering: []string{"point", "quote"},
				},
			},
		},
		Required:         evaluationFields,
		PropertyOrdering: evaluationFields,
	}
}

// JSONSchema converts s into a JSON Schema document. Objects are closed
// (additionalProperties false) so the same document works for strict
// structured output and for response validation.
func (s *Schema) JSONSchema() map[string]interface{} {
	if s == nil {
		return nil
	}

	doc := map[string]interface{}{
		"type": strings.ToLower(s.Type),
	}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.JSONSchema()
		}
		doc["properties"] = props
		doc["additionalProperties"] = false
	}
	if len(s.Required) > 0 {
		doc["required"] = append([]string(nil), s.Required...)
	}
	if s.Items != nil {
		doc["items"] = s.Items.JSONSchema()
	}
	return doc
}

// MarshalJSONSchema renders s as a JSON Schema document.
func (s *Schema) MarshalJSONSchema() (json.RawMessage, error) {
	payload, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal json schema: %w", err)
	}
	return payload, nil
}
