// Package testkit drives REST API tests from JSON scenario files.
//
// A scenario file holds an array of steps that run in order against one
// handler, so later steps can use what earlier ones created:
//
//	[
//	  {"name": "add lamp", "as": "user", "requestMethod": "POST",
//	   "requestUrl": "/api/cart", "body": {"productId": "{{lampId}}"}, "expectedCode": 201},
//	  {"name": "checkout", "as": "user", "requestMethod": "POST",
//	   "requestUrl": "/api/orders", "expectedCode": 200,
//	   "capture": {"orderId": "data.orderId"}},
//	  {"name": "show order", "as": "user", "requestUrl": "/api/orders/{{orderId}}",
//	   "expectedCode": 200, "response": {"data": {"status": "pending"}}}
//	]
//
// Inside bodies and expected responses, a string that is exactly
// "{{name}}" turns into a bare number when the captured value was one.
// "response" is a subset match: only the keys it names are compared, and
// "{{*}}" stands for any non-null value, as it does in "expectedHeaders".
// "responseFileName" compares the whole body against a file.
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario is one request and what it must return.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestFileName string            `json:"requestFileName"`
	Body            json.RawMessage   `json:"body"`
	Headers         map[string]string `json:"headers"`

	// As names a Runner identity whose bearer token is sent.
	As string `json:"as"`

	ExpectedCode     int               `json:"expectedCode"`
	ExpectedHeaders  map[string]string `json:"expectedHeaders"`
	ResponseFileName string            `json:"responseFileName"`
	Response         json.RawMessage   `json:"response"`

	// Capture maps a variable name to a dotted path in the response body.
	// Later steps reference it as {{name}}.
	Capture map[string]string `json:"capture"`

	dir string
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	if len(s.Body) > 0 && s.RequestFileName != "" {
		return fmt.Errorf("body and requestFileName are mutually exclusive")
	}
	return nil
}

func (s *Scenario) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// RequestBodyPath is RequestFileName resolved against the scenario file's
// directory, or "" when unset.
func (s *Scenario) RequestBodyPath() string { return s.resolve(s.RequestFileName) }

// ResponseBodyPath is ResponseFileName resolved the same way.
func (s *Scenario) ResponseBodyPath() string { return s.resolve(s.ResponseFileName) }

// LoadFile reads a scenario array, or a single scenario object, from path.
func LoadFile(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var steps []*Scenario
	if err := json.Unmarshal(data, &steps); err != nil {
		var one Scenario
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
		}
		steps = []*Scenario{&one}
	}

	for i, s := range steps {
		s.dir = filepath.Dir(abs)
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %q step %d: %w", abs, i, err)
		}
	}
	return steps, nil
}
