package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// GenSchema pairs a provider-facing JSON schema with a name used for schema
// caching and the structured-output request.
type GenSchema struct {
	Name       string
	Definition map[string]any
}

var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateDocument checks a parsed model response against the schema. The
// provider-side constraint is best effort, so every response is re-validated
// before persistence.
func validateDocument(schema *GenSchema, doc any) error {
	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func getCompiledSchema(schema *GenSchema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value (any), not raw bytes.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}

// SyllabusSchema constrains the course-outline completion.
var SyllabusSchema = &GenSchema{
	Name: "course-outline",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string"},
			"level": map[string]any{
				"type": "string",
				"enum": []any{"beginner", "intermediate", "advanced"},
			},
			"estimated_duration": map[string]any{"type": "string"},
			"prerequisites": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"chapters": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":              map[string]any{"type": "string", "minLength": 1},
						"description":        map[string]any{"type": "string"},
						"estimated_duration": map[string]any{"type": "string"},
						"emoji":              map[string]any{"type": "string"},
						"lessons": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"title":       map[string]any{"type": "string", "minLength": 1},
									"description": map[string]any{"type": "string"},
								},
								"required":             []any{"title", "description"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []any{"title", "description", "estimated_duration", "emoji", "lessons"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "description", "level", "estimated_duration", "prerequisites", "chapters"},
		"additionalProperties": false,
	},
}

// LessonSchema constrains the detailed-lesson completion.
var LessonSchema = &GenSchema{
	Name: "lesson-content",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string", "minLength": 1},
			"sections": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":   map[string]any{"type": "string", "minLength": 1},
						"content": map[string]any{"type": "string", "minLength": 1},
						"key_points": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items":    map[string]any{"type": "string"},
						},
						"examples": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required":             []any{"title", "content", "key_points", "examples"},
					"additionalProperties": false,
				},
			},
			"exercises": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt":   map[string]any{"type": "string"},
						"solution": map[string]any{"type": "string"},
					},
					"required":             []any{"prompt", "solution"},
					"additionalProperties": false,
				},
			},
			"assessment": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"review_questions": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"practice_problems": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required":             []any{"review_questions", "practice_problems"},
				"additionalProperties": false,
			},
			"resources": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"required": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"supplementary": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required":             []any{"required", "supplementary"},
				"additionalProperties": false,
			},
			"next_steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"summary", "sections", "exercises", "assessment", "resources", "next_steps"},
		"additionalProperties": false,
	},
}
