package assertions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Check_AllPass(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "body.json"), []byte(`{"id": 7, "tags": ["a"]}`), 0644))

	e := NewEvaluator(createResponse(200, `{"id": 7, "tags": ["a"]}`, map[string]string{
		"Content-Type": "application/json",
		"X-Flags":      "a,b",
	}), WithBaseDir(dir))

	results := e.Check(&Expectation{
		Status:       200,
		Headers:      []string{"content-type"},
		HeaderValues: map[string]string{"x-flags": "b"},
		BodyContains: []string{`"id": 7`},
		BodyMatches:  []string{`"tags":\s*\[`},
		BodyFile:     "body.json",
		JSON:         map[string]any{"id": 7},
		JSONExists:   []string{"tags[0]"},
	})

	require.Len(t, results, 8)
	for _, r := range results {
		assert.True(t, r.Passed, "%s %s: %s", r.Subject, r.Operator, r.Message)
	}
	assert.True(t, AllPassed(results))
}

func TestEvaluator_Check_Failures(t *testing.T) {
	e := NewEvaluator(createResponse(404, "not found", map[string]string{"Content-Type": "text/plain"}))

	results := e.Check(&Expectation{
		Status:       200,
		Headers:      []string{"x-request-id"},
		HeaderValues: map[string]string{"content-type": "text/html"},
		BodyContains: []string{"welcome"},
		BodyMatches:  []string{"("},
	})

	require.Len(t, results, 5)
	for _, r := range results {
		assert.False(t, r.Passed, r.Subject)
		assert.NotEmpty(t, r.Message)
	}
	assert.Equal(t, "expected 200, got 404", results[0].Message)
	assert.Contains(t, results[4].Message, "invalid regex pattern")
	assert.False(t, AllPassed(results))
}

func TestEvaluator_Check_StableOrder(t *testing.T) {
	e := NewEvaluator(createResponse(200, "", map[string]string{"A": "1", "B": "2", "C": "3"}))

	results := e.Check(&Expectation{HeaderValues: map[string]string{"c": "3", "a": "1", "b": "2"}})

	require.Len(t, results, 3)
	assert.Equal(t, "header a", results[0].Subject)
	assert.Equal(t, "header b", results[1].Subject)
	assert.Equal(t, "header c", results[2].Subject)
}

func TestExpectation_Validate(t *testing.T) {
	assert.NoError(t, (&Expectation{BodyMatches: []string{`\d+`}}).Validate())
	assert.Error(t, (&Expectation{BodyMatches: []string{`(`}}).Validate())
	assert.Error(t, (&Expectation{Status: 1000}).Validate())
}

func TestExpectation_IsEmpty(t *testing.T) {
	assert.True(t, (&Expectation{}).IsEmpty())
	assert.False(t, (&Expectation{Status: 200}).IsEmpty())
	assert.False(t, (&Expectation{Schema: "s.json"}).IsEmpty())
}
