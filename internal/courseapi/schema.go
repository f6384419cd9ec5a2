package courseapi

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const courseSchemaURL = "schema://course.json"

// courseSchema describes the parts of the course record the syllabus
// builder depends on. Extra fields are allowed.
var courseSchema = map[string]any{
	"type":     "object",
	"required": []any{"course_title"},
	"properties": map[string]any{
		"course_id":    map[string]any{"type": "string"},
		"course_title": map[string]any{"type": "string"},
		"syllabus": map[string]any{
			"type": []any{"object", "null"},
			"properties": map[string]any{
				"lessons": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/$defs/lesson"},
				},
			},
		},
	},
	"$defs": map[string]any{
		"lesson": map[string]any{
			"type":     "object",
			"required": []any{"lesson_id"},
			"properties": map[string]any{
				"lesson_id":    map[string]any{"type": "string"},
				"lesson_title": map[string]any{"type": "string"},
				"order":        map[string]any{"type": "integer"},
				"topics": map[string]any{
					"type":  []any{"array", "null"},
					"items": map[string]any{"$ref": "#/$defs/topic"},
				},
			},
		},
		"topic": map[string]any{
			"type":     "object",
			"required": []any{"topic_id"},
			"properties": map[string]any{
				"topic_id": map[string]any{"type": "string"},
				"order":    map[string]any{"type": "integer"},
				"subtopics": map[string]any{
					"type": []any{"array", "null"},
					"items": map[string]any{
						"type":     "object",
						"required": []any{"subtopic_id"},
						"properties": map[string]any{
							"subtopic_id": map[string]any{"type": "string"},
							"order":       map[string]any{"type": "integer"},
						},
					},
				},
			},
		},
	},
}

var (
	compileOnce    sync.Once
	compiledCourse *jsonschema.Schema
	compileErr     error
)

func courseValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(courseSchemaURL, courseSchema); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledCourse, compileErr = c.Compile(courseSchemaURL)
	})
	return compiledCourse, compileErr
}

// validateCourse checks a raw course body against the course schema.
func validateCourse(path string, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &InvalidPayloadError{Path: path, Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := courseValidator()
	if err != nil {
		return &InvalidPayloadError{Path: path, Content: raw, Err: fmt.Errorf("compile schema: %w", err)}
	}

	if err := sch.Validate(parsed); err != nil {
		return &InvalidPayloadError{Path: path, Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}
