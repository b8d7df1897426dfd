package assertions

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

// BodyJSONHas reports whether the body is JSON and path exists in it.
func (e *Evaluator) BodyJSONHas(path string) bool {
	if !e.bodyJSON.Exists() {
		return false
	}
	return e.bodyJSON.Get(convertBracketNotation(path)).Exists()
}

// BodyJSONValue returns the value at path, or nil when it does not exist.
func (e *Evaluator) BodyJSONValue(path string) any {
	if !e.bodyJSON.Exists() {
		return nil
	}
	result := e.bodyJSON.Get(convertBracketNotation(path))
	if !result.Exists() {
		return nil
	}
	return result.Value()
}

// BodyJSONEquals compares the value at path with expected. Numbers compare
// by value and anything else falls back to its printed form.
func (e *Evaluator) BodyJSONEquals(path string, expected any) bool {
	if !e.BodyJSONHas(path) {
		return false
	}
	return equals(e.BodyJSONValue(path), expected)
}

// BodyMatchesSchema validates the body against the JSON Schema file at
// schemaPath. A false result with a nil error means the body is invalid.
func (e *Evaluator) BodyMatchesSchema(schemaPath string) (bool, error) {
	ok, _, err := e.validateSchema(schemaPath)
	return ok, err
}

func (e *Evaluator) validateSchema(schemaPath string) (bool, []string, error) {
	resolved, err := e.resolvePath(schemaPath)
	if err != nil {
		return false, nil, err
	}

	schemaLoader := gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(resolved))
	documentLoader := gojsonschema.NewBytesLoader(e.response.Body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return false, nil, fmt.Errorf("schema validation error: %w", err)
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return result.Valid(), problems, nil
}

// resolvePath joins a relative path onto the base directory and keeps it
// there. Absolute paths are used as given.
func (e *Evaluator) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if e.baseDir != "" {
		path = filepath.Join(e.baseDir, path)
	}
	if err := validatePathWithinBase(path, e.baseDir); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// validatePathWithinBase checks that the resolved path stays within the base directory
// to prevent path traversal attacks
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

func equals(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk {
		return actualNum == expectedNum
	}

	return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
