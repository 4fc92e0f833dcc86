package newsgraph

import (
	"fmt"
	"reflect"
	"strings"
)

// entityMetadata holds the parsed `graph` tag information for a specific struct type.
type entityMetadata struct {
	// Label is the graph node label, defaulting to the struct's name.
	Label string
	// PKField is the name of the struct field marked as the lookup key.
	PKField string
	// PKProp is the property name of the lookup key in the database.
	PKProp string
	// Mappings maps struct field names to their corresponding database property names.
	Mappings map[string]string
}

// property returns the database property mapped to the given property or struct
// field name, and whether it is mapped at all.
func (m *entityMetadata) property(name string) (string, bool) {
	for field, prop := range m.Mappings {
		if prop == name || field == name {
			return prop, true
		}
	}
	return "", false
}

// parseTagsFromType inspects a reflect.Type and extracts mapping metadata from
// `graph` struct tags. Tags look like `graph:"pk,property:url"` or
// `graph:"property:title"`; a `label:Name` component on any field overrides the
// node label.
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	meta := &entityMetadata{
		Label:    typ.Name(),
		Mappings: make(map[string]string),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("graph")
		if tag == "" || tag == "-" {
			continue
		}

		isPk := false
		propName := ""
		for _, part := range strings.Split(tag, ",") {
			switch {
			case part == "pk":
				isPk = true
			case strings.HasPrefix(part, "property:"):
				propName = strings.TrimPrefix(part, "property:")
			case strings.HasPrefix(part, "label:"):
				meta.Label = strings.TrimPrefix(part, "label:")
			}
		}

		if propName == "" {
			return nil, fmt.Errorf("field %s is missing 'property' tag component", field.Name)
		}

		if isPk {
			if meta.PKField != "" {
				return nil, fmt.Errorf("struct %s declares more than one 'pk' field", typ.Name())
			}
			meta.PKField = field.Name
			meta.PKProp = propName
		}
		meta.Mappings[field.Name] = propName
	}

	if meta.PKField == "" {
		return nil, fmt.Errorf("no primary key ('pk') tag defined for struct %s", typ.Name())
	}

	return meta, nil
}

// parseTags is a generic convenience wrapper around parseTagsFromType.
func parseTags[T any]() (*entityMetadata, error) {
	var instance T
	return parseTagsFromType(reflect.TypeOf(instance))
}
