package event

import (
	"reflect"
	"strings"
)

// DefaultFieldExtractor reads fields by their json names. Anything that is not a struct or a
// non-nil struct pointer yields no fields.
type DefaultFieldExtractor struct{}

func (e *DefaultFieldExtractor) ExtractFields(obj interface{}, fields []string) map[string]interface{} {
	result := make(map[string]interface{}, len(fields))
	val, ok := structValue(obj)
	if !ok || len(fields) == 0 {
		return result
	}

	index := jsonFieldIndex(val.Type())
	for _, name := range fields {
		if i, ok := index[name]; ok {
			result[name] = val.Field(i).Interface()
		}
	}
	return result
}

// ExtractChanges returns {"field": {"old": .., "new": ..}} for every listed field that differs.
func (e *DefaultFieldExtractor) ExtractChanges(old, new interface{}, fields []string) map[string]interface{} {
	changes := make(map[string]interface{})
	oldFields := e.ExtractFields(old, fields)
	if len(oldFields) == 0 {
		return changes
	}

	for field, newValue := range e.ExtractFields(new, fields) {
		oldValue, ok := oldFields[field]
		if !ok || reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		changes[field] = map[string]interface{}{
			"old": oldValue,
			"new": newValue,
		}
	}
	return changes
}

func structValue(obj interface{}) (reflect.Value, bool) {
	if obj == nil {
		return reflect.Value{}, false
	}
	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return reflect.Value{}, false
		}
		val = val.Elem()
	}
	return val, val.Kind() == reflect.Struct
}

// jsonFieldIndex maps json names to field positions. Unexported and "-" fields are skipped;
// untagged fields use the lowercased Go name.
func jsonFieldIndex(typ reflect.Type) map[string]int {
	index := make(map[string]int, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = strings.ToLower(field.Name)
		}
		index[name] = i
	}
	return index
}
