package task

import (
	"fmt"
	"reflect"
)

// validateValue runs the built-in validators declared on def against the
// coerced value v, adding any failures to errs under def.Name (spec §3
// "validators: presence, absence, format, length, numeric, inclusion,
// exclusion").
func validateValue(def *AttributeDef, v any, present bool, errs *ErrorCollection) {
	if def.Presence && !present {
		errs.Add(def.Name, "is required")
	}
	if def.Presence && present && isZero(v) {
		errs.Add(def.Name, "must not be blank")
	}
	if def.Absence && present && !isZero(v) {
		errs.Add(def.Name, "must be absent")
	}
	if !present {
		return
	}
	if def.Format != nil {
		s, ok := v.(string)
		if !ok || !def.Format.MatchString(s) {
			errs.Add(def.Name, "has invalid format")
		}
	}
	if def.MinLength != nil || def.MaxLength != nil {
		n, ok := length(v)
		if !ok {
			errs.Add(def.Name, "does not support a length check")
		} else {
			if def.MinLength != nil && n < *def.MinLength {
				errs.Add(def.Name, fmt.Sprintf("is shorter than the minimum length of %d", *def.MinLength))
			}
			if def.MaxLength != nil && n > *def.MaxLength {
				errs.Add(def.Name, fmt.Sprintf("is longer than the maximum length of %d", *def.MaxLength))
			}
		}
	}
	if def.Numeric {
		switch v.(type) {
		case int, int64, float64:
		default:
			errs.Add(def.Name, "is not numeric")
		}
	}
	if len(def.Inclusion) > 0 && !contains(def.Inclusion, v) {
		errs.Add(def.Name, "is not included in the list")
	}
	if len(def.Exclusion) > 0 && contains(def.Exclusion, v) {
		errs.Add(def.Name, "is reserved")
	}
	if def.JSONSchema != nil {
		for _, msg := range def.JSONSchema.Validate(v) {
			errs.Add(def.Name, msg)
		}
	}
	for _, name := range def.CustomValidators {
		if fn, ok := Validators.Get(name); ok {
			fn(def.Name, v, present, errs)
		}
	}
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	default:
		return !rv.IsValid() || rv.IsZero()
	}
}

func length(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	default:
		return 0, false
	}
}

func contains(set []any, v any) bool {
	for _, s := range set {
		if reflect.DeepEqual(s, v) {
			return true
		}
	}
	return false
}
