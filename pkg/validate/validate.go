// Package validate checks request inputs against `validate` struct tags.
//
//	required      not zero or blank; a non-nil pointer always passes
//	nullable      skip the field when it is empty or a nil pointer
//	email, uuid   format checks
//	min=N max=N   length for strings, value for numbers
//	gt=N gte=N lte=N
//	in=a,b,c      one of the listed values
//	regex=expr    must match (no commas in expr)
//	confirmed     equals the sibling <field>_confirmation
//
// Pointer fields tell an omitted value from an explicit zero:
//
//	type AddToCartInput struct {
//		ProductID uint   `json:"productId" validate:"required"`
//		Quantity  *int64 `json:"quantity"  validate:"nullable,gte=1"`
//	}
//
// Tags are parsed once per struct type.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Struct returns field name → message for every failing field, checking the
// rules of a field in tag order and stopping at its first failure.
func Struct(v any) map[string]string {
	errs := map[string]string{}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return errs
	}
	for _, f := range planFor(rv.Type()) {
		if msg := f.check(rv); msg != "" {
			errs[f.name] = msg
		}
	}
	return errs
}

func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

type rule struct {
	key   string
	param string
	num   float64
	list  []string
	re    *regexp.Regexp
}

type fieldPlan struct {
	index    int
	name     string
	nullable bool
	rules    []rule
}

var plans sync.Map // reflect.Type → []fieldPlan

func planFor(t reflect.Type) []fieldPlan {
	if p, ok := plans.Load(t); ok {
		return p.([]fieldPlan)
	}
	var out []fieldPlan
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}
		fp := fieldPlan{index: i, name: jsonName(sf)}
		for _, raw := range splitRules(tag) {
			if raw == "nullable" {
				fp.nullable = true
				continue
			}
			fp.rules = append(fp.rules, parseRule(raw))
		}
		out = append(out, fp)
	}
	p, _ := plans.LoadOrStore(t, out)
	return p.([]fieldPlan)
}

func parseRule(raw string) rule {
	key, param, _ := strings.Cut(raw, "=")
	r := rule{key: key, param: param}
	switch key {
	case "min", "max", "gt", "gte", "lte":
		r.num, _ = strconv.ParseFloat(strings.TrimSpace(param), 64)
	case "in":
		for _, item := range strings.Split(param, ",") {
			r.list = append(r.list, strings.TrimSpace(item))
		}
	case "regex":
		// A bad pattern fails every value instead of panicking at request time.
		r.re, _ = regexp.Compile(param)
	}
	return r
}

func (f fieldPlan) check(parent reflect.Value) string {
	v := parent.Field(f.index)
	if f.nullable && blank(v) {
		return ""
	}
	explicit := v.Kind() == reflect.Pointer && !v.IsNil()
	if explicit {
		v = v.Elem()
	}
	for _, r := range f.rules {
		if r.key == "required" {
			if !explicit && blank(v) {
				return fmt.Sprintf("The %s field is required.", f.name)
			}
			continue
		}
		if v.Kind() == reflect.Pointer {
			// nil and not required
			return ""
		}
		if msg := r.apply(f.name, v, parent); msg != "" {
			return msg
		}
	}
	return ""
}

func (r rule) apply(field string, v, parent reflect.Value) string {
	s := fmt.Sprint(v.Interface())
	n, numeric := number(v)

	switch r.key {
	case "email":
		if !emailRE.MatchString(s) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "uuid":
		if uuid.Validate(s) != nil || len(s) != 36 {
			return fmt.Sprintf("The %s must be a valid UUID.", field)
		}
	case "min":
		if numeric && n < r.num {
			return fmt.Sprintf("The %s must be at least %s.", field, r.param)
		}
		if !numeric && float64(len([]rune(s))) < r.num {
			return fmt.Sprintf("The %s must be at least %s characters.", field, r.param)
		}
	case "max":
		if numeric && n > r.num {
			return fmt.Sprintf("The %s must not be greater than %s.", field, r.param)
		}
		if !numeric && float64(len([]rune(s))) > r.num {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, r.param)
		}
	case "gt":
		if n <= r.num {
			return fmt.Sprintf("The %s must be greater than %s.", field, r.param)
		}
	case "gte":
		if n < r.num {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, r.param)
		}
	case "lte":
		if n > r.num {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, r.param)
		}
	case "in":
		for _, item := range r.list {
			if s == item {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "regex":
		if r.re == nil || !r.re.MatchString(s) {
			return fmt.Sprintf("The %s format is invalid.", field)
		}
	case "confirmed":
		other, ok := sibling(parent, field+"_confirmation")
		if !ok || fmt.Sprint(other.Interface()) != s {
			return fmt.Sprintf("The %s confirmation does not match.", field)
		}
	}
	return ""
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func blank(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Bool:
		return false
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	}
	return v.IsZero()
}

func number(v reflect.Value) (float64, bool) {
	switch {
	case v.CanInt():
		return float64(v.Int()), true
	case v.CanUint():
		return float64(v.Uint()), true
	case v.CanFloat():
		return v.Float(), true
	}
	f, _ := strconv.ParseFloat(fmt.Sprint(v.Interface()), 64)
	return f, false
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

var ruleKeys = []string{"required", "nullable", "email", "uuid", "confirmed", "regex=", "min=", "max=", "gt=", "gte=", "lte=", "in="}

// splitRules splits on commas except inside an in= list, which runs until
// the next known rule: "required,in=user,admin,max=10" has three rules.
func splitRules(tag string) []string {
	var (
		out  []string
		cur  strings.Builder
		inIn bool
	)
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if c == ',' && (!inIn || startsRule(tag[i+1:])) {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			inIn = false
			continue
		}
		cur.WriteByte(c)
		if cur.Len() == 3 && cur.String() == "in=" {
			inIn = true
		}
	}
	if cur.Len() > 0 {
		out = append(out, strings.TrimSpace(cur.String()))
	}
	return out
}

func startsRule(s string) bool {
	for _, k := range ruleKeys {
		if strings.HasPrefix(s, k) {
			return true
		}
	}
	return false
}

func sibling(parent reflect.Value, name string) (reflect.Value, bool) {
	t := parent.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonName(t.Field(i)) == name {
			return parent.Field(i), true
		}
	}
	return reflect.Value{}, false
}
