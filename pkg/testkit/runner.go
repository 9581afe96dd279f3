package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Runner fires scenarios at Handler. Tokens maps an "as" identity to a
// bearer token. Captured variables persist across steps and files.
type Runner struct {
	Handler http.Handler
	Tokens  map[string]string
	Vars    map[string]string

	numeric map[string]bool
}

func NewRunner(h http.Handler) *Runner {
	return &Runner{Handler: h, Tokens: map[string]string{}, Vars: map[string]string{}, numeric: map[string]bool{}}
}

// RunFile runs every step of one scenario file as a subtest. A failing
// step stops the file, since later steps usually depend on it.
func (r *Runner) RunFile(t *testing.T, path string) {
	t.Helper()
	steps, err := LoadFile(path)
	require.NoError(t, err)

	for _, s := range steps {
		if !t.Run(s.Name, func(t *testing.T) { r.run(t, s) }) {
			return
		}
	}
}

// RunDir runs every *.json file in dir, one subtest per file.
func (r *Runner) RunDir(t *testing.T, dir string) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "testkit: no scenario files in %q", dir)

	for _, f := range files {
		t.Run(strings.TrimSuffix(filepath.Base(f), ".json"), func(t *testing.T) {
			r.RunFile(t, f)
		})
	}
}

var (
	varPattern    = regexp.MustCompile(`\{\{(\w+)\}\}`)
	quotedPattern = regexp.MustCompile(`"\{\{(\w+)\}\}"`)
)

// expand replaces {{name}} with captured values. Unknown names fail the
// test rather than sending a literal placeholder.
func (r *Runner) expand(t *testing.T, s string) string {
	t.Helper()
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := varPattern.FindStringSubmatch(m)[1]
		v, ok := r.Vars[name]
		if !ok {
			t.Fatalf("testkit: variable %q was never captured", name)
		}
		return v
	})
}

// expandJSON is expand for JSON documents: a string that is exactly
// "{{name}}" becomes a bare number when name captured a number, so ids can
// be sent to fields typed as integers.
func (r *Runner) expandJSON(t *testing.T, doc string) string {
	t.Helper()
	doc = quotedPattern.ReplaceAllStringFunc(doc, func(m string) string {
		name := quotedPattern.FindStringSubmatch(m)[1]
		if r.numeric[name] {
			return r.Vars[name]
		}
		return m
	})
	return r.expand(t, doc)
}

func (r *Runner) body(t *testing.T, s *Scenario) io.Reader {
	t.Helper()
	raw := []byte(s.Body)
	if p := s.RequestBodyPath(); p != "" {
		data, err := os.ReadFile(p)
		require.NoError(t, err, "[%s] read request file", s.Name)
		raw = data
	}
	if len(raw) == 0 {
		return nil
	}
	return strings.NewReader(r.expandJSON(t, string(raw)))
}

func (r *Runner) run(t *testing.T, s *Scenario) {
	t.Helper()

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), r.expand(t, s.RequestURL), r.body(t, s))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.As != "" {
		token, ok := r.Tokens[s.As]
		require.True(t, ok, "[%s] no token for identity %q", s.Name, s.As)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, r.expand(t, v))
	}

	rec := httptest.NewRecorder()
	r.Handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code, rec.Body.Bytes())
	AssertHeaders(t, s, rec.Header())

	if p := s.ResponseBodyPath(); p != "" {
		expected, err := os.ReadFile(p)
		require.NoError(t, err, "[%s] read response file", s.Name)
		AssertJSONBody(t, s, []byte(r.expandJSON(t, string(expected))), rec.Body.Bytes())
	}
	if len(s.Response) > 0 {
		AssertJSONSubset(t, s, []byte(r.expandJSON(t, string(s.Response))), rec.Body.Bytes())
	}
	r.capture(t, s, rec.Body.Bytes())
}

func (r *Runner) capture(t *testing.T, s *Scenario, body []byte) {
	t.Helper()
	if len(s.Capture) == 0 {
		return
	}
	var doc any
	require.NoError(t, json.Unmarshal(body, &doc), "[%s] capture from non-JSON body", s.Name)

	if r.numeric == nil {
		r.numeric = map[string]bool{}
	}
	for name, path := range s.Capture {
		v, ok := Lookup(doc, path)
		require.True(t, ok, "[%s] capture %q: no value at %q", s.Name, name, path)
		r.numeric[name] = false
		switch v := v.(type) {
		case string:
			r.Vars[name] = v
		case float64:
			r.Vars[name] = strconv.FormatFloat(v, 'f', -1, 64)
			r.numeric[name] = true
		default:
			b, _ := json.Marshal(v)
			r.Vars[name] = string(bytes.Trim(b, `"`))
		}
	}
}

// Lookup walks a decoded JSON document along a dotted path. Numeric
// segments index arrays: "data.items.0.id".
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			var i int
			if _, err := fmt.Sscanf(seg, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
