package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const evaluationSchemaURL = "evaluation.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func evaluationSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := ResponseSchema().MarshalJSONSchema()
		if err != nil {
			schemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(evaluationSchemaURL, bytes.NewReader(doc)); err != nil {
			schemaErr = fmt.Errorf("add evaluation schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(evaluationSchemaURL)
	})
	return compiledSchema, schemaErr
}

// ParseEvaluation decodes model output into an EvaluationResult. The payload
// must satisfy the declared response schema; any mismatch rejects the whole
// document.
func ParseEvaluation(content string) (EvaluationResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return EvaluationResult{}, ErrEmptyResponse
	}

	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return EvaluationResult{}, fmt.Errorf("%w: parse json: %v", ErrInvalidResponse, err)
	}

	schema, err := evaluationSchema()
	if err != nil {
		return EvaluationResult{}, fmt.Errorf("compile evaluation schema: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return EvaluationResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var result EvaluationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return EvaluationResult{}, fmt.Errorf("%w: decode evaluation: %v", ErrInvalidResponse, err)
	}

	return result, nil
}
