package testkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Present matches any non-null value in an expected response.
const Present = "{{*}}"

// AssertStatusCode checks the response code and shows the body on mismatch.
func AssertStatusCode(t *testing.T, s *Scenario, got int, body []byte) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] status code\nbody: %s", s.Name, body)
}

// AssertHeaders checks every header s.ExpectedHeaders names. Present
// accepts any non-empty value.
func AssertHeaders(t *testing.T, s *Scenario, got http.Header) {
	t.Helper()
	for _, name := range sortedKeys(s.ExpectedHeaders) {
		want, have := s.ExpectedHeaders[name], got.Get(name)
		if want == Present {
			assert.NotEmpty(t, have, "[%s] header %s missing", s.Name, name)
			continue
		}
		assert.Equal(t, want, have, "[%s] header %s", s.Name, name)
	}
}

// AssertJSONBody compares the whole body after decoding both sides, so key
// order and whitespace never matter.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}
	want, got, ok := decodeBoth(t, s, expected, actual)
	if ok {
		assert.Equal(t, want, got, "[%s] response body", s.Name)
	}
}

// AssertJSONSubset compares only what expected names; see DiffJSON.
func AssertJSONSubset(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()
	want, got, ok := decodeBoth(t, s, expected, actual)
	if !ok {
		return
	}
	if diffs := DiffJSON("", want, got); len(diffs) > 0 {
		assert.Fail(t, fmt.Sprintf("[%s] response mismatch", s.Name),
			"%s\nbody: %s", strings.Join(diffs, "\n"), actual)
	}
}

func decodeBoth(t *testing.T, s *Scenario, expected, actual []byte) (any, any, bool) {
	t.Helper()
	var want, got any
	require.NoError(t, json.Unmarshal(expected, &want), "[%s] expected response is not JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &got), "[%s] response is not JSON\nbody: %s", s.Name, actual) {
		return nil, nil, false
	}
	return want, got, true
}

// DiffJSON lists where actual departs from expected, one line per path in
// key order. Keys missing from an expected object are not compared, arrays
// must match in length, and the string Present matches any non-null value.
func DiffJSON(path string, expected, actual any) []string {
	at := keyPath(path)

	switch want := expected.(type) {
	case map[string]any:
		got, ok := actual.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("  %s: expected object, got %s", at, kind(actual))}
		}
		var diffs []string
		for _, k := range sortedKeys(want) {
			sub := strings.TrimPrefix(path+"."+k, ".")
			v, found := got[k]
			if !found {
				diffs = append(diffs, fmt.Sprintf("  %s: missing in actual", sub))
				continue
			}
			diffs = append(diffs, DiffJSON(sub, want[k], v)...)
		}
		return diffs

	case []any:
		got, ok := actual.([]any)
		if !ok {
			return []string{fmt.Sprintf("  %s: expected array, got %s", at, kind(actual))}
		}
		var diffs []string
		if len(want) != len(got) {
			diffs = append(diffs, fmt.Sprintf("  %s: array length expected=%d actual=%d", at, len(want), len(got)))
		}
		for i := range min(len(want), len(got)) {
			diffs = append(diffs, DiffJSON(fmt.Sprintf("%s[%d]", at, i), want[i], got[i])...)
		}
		return diffs

	case string:
		if want == Present {
			if actual == nil {
				return []string{fmt.Sprintf("  %s: expected a value, got null", at)}
			}
			return nil
		}
	}

	if fmt.Sprint(expected) != fmt.Sprint(actual) {
		return []string{fmt.Sprintf("  %s:\n    - %v\n    + %v", at, expected, actual)}
	}
	return nil
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func keyPath(path string) string {
	if path == "" {
		return "root"
	}
	return strings.TrimPrefix(path, ".")
}
