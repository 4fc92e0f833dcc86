package resolve

import (
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/cypher"
)

// Object is a response object whose keys keep selection order when encoded.
type Object = orderedmap.OrderedMap[string, any]

func newObject() *Object {
	return orderedmap.New[string, any]()
}

// crsNames maps spatial reference ids to coordinate reference system names.
var crsNames = map[uint32]string{
	4326: "wgs-84",
	4979: "wgs-84-3d",
	7203: "cartesian",
	9157: "cartesian-3d",
}

// completer shapes raw record values into response values following the field
// definitions of the API schema.
type completer struct {
	api *ast.Schema
}

// complete returns the response value for one field occurrence. ok is false when
// the value is null for a non-null type, in which case the caller must null itself.
// The error for a violation is reported once, at the path where it happened.
func (c *completer) complete(path ast.Path, typ *ast.Type, value interface{}, f *cypher.Field) (out interface{}, errs gqlerror.List, ok bool) {
	if value == nil {
		if typ.NonNull {
			return nil, gqlerror.List{nullError(path, f)}, false
		}
		return nil, nil, true
	}

	if typ.Elem != nil {
		items, isList := value.([]interface{})
		if !isList {
			return c.invalid(path, typ, f, fmt.Errorf("expected a list, got %T", value))
		}
		list := make([]interface{}, len(items))
		for i, item := range items {
			v, itemErrs, itemOK := c.complete(extend(path, ast.PathIndex(i)), typ.Elem, item, f)
			errs = append(errs, itemErrs...)
			if !itemOK {
				return nil, errs, !typ.NonNull
			}
			list[i] = v
		}
		return list, errs, true
	}

	named := typ.NamedType
	if named == "Point" {
		point, err := pointObject(value)
		if err != nil {
			return c.invalid(path, typ, f, err)
		}
		value = point
	}

	def := c.api.Types[named]
	if def == nil || def.Kind == ast.Scalar || def.Kind == ast.Enum {
		v, err := coerceScalar(named, value)
		if err != nil {
			return c.invalid(path, typ, f, err)
		}
		return v, nil, true
	}

	m, isMap := value.(map[string]interface{})
	if !isMap {
		return c.invalid(path, typ, f, fmt.Errorf("expected an object, got %T", value))
	}
	obj, objErrs, objOK := c.object(path, named, m, f.SelectionSet)
	if !objOK {
		return nil, objErrs, !typ.NonNull
	}
	return obj, objErrs, true
}

// object completes every selected field of an object. A non-null violation in any
// field nulls the whole object.
func (c *completer) object(path ast.Path, typeName string, m map[string]interface{}, selection []*cypher.Field) (*Object, gqlerror.List, bool) {
	obj := newObject()
	var errs gqlerror.List
	for _, sf := range selection {
		key := sf.ResponseKey()
		if sf.Name == "__typename" {
			obj.Set(key, typeName)
			continue
		}
		if sf.Definition == nil {
			continue
		}
		v, fieldErrs, ok := c.complete(extend(path, ast.PathName(key)), sf.Definition.Type, m[key], sf)
		errs = append(errs, fieldErrs...)
		if !ok {
			return nil, errs, false
		}
		obj.Set(key, v)
	}
	return obj, errs, true
}

// invalid reports a value that does not fit its declared type as a field error.
func (c *completer) invalid(path ast.Path, typ *ast.Type, f *cypher.Field, err error) (interface{}, gqlerror.List, bool) {
	e := &gqlerror.Error{
		Message:    err.Error(),
		Path:       path,
		Extensions: map[string]interface{}{"code": CodeInternal},
	}
	if f != nil && f.Position != nil {
		e.Locations = []gqlerror.Location{{Line: f.Position.Line, Column: f.Position.Column}}
	}
	return nil, gqlerror.List{e}, !typ.NonNull
}

func nullError(path ast.Path, f *cypher.Field) *gqlerror.Error {
	e := &gqlerror.Error{
		Message:    "Cannot return null for non-nullable field",
		Path:       path,
		Extensions: map[string]interface{}{"code": CodeInternal},
	}
	if f != nil {
		e.Message = fmt.Sprintf("Cannot return null for non-nullable field %s", f.Name)
		if f.Position != nil {
			e.Locations = []gqlerror.Location{{Line: f.Position.Line, Column: f.Position.Column}}
		}
	}
	return e
}

func extend(path ast.Path, el ast.PathElement) ast.Path {
	out := make(ast.Path, len(path), len(path)+1)
	copy(out, path)
	return append(out, el)
}

// pointObject converts a spatial driver value into the fields of the Point type.
func pointObject(value interface{}) (map[string]interface{}, error) {
	switch p := value.(type) {
	case neo4j.Point2D:
		return map[string]interface{}{
			"longitude": p.X,
			"latitude":  p.Y,
			"height":    nil,
			"crs":       crsName(p.SpatialRefId),
			"srid":      int64(p.SpatialRefId),
		}, nil
	case neo4j.Point3D:
		return map[string]interface{}{
			"longitude": p.X,
			"latitude":  p.Y,
			"height":    p.Z,
			"crs":       crsName(p.SpatialRefId),
			"srid":      int64(p.SpatialRefId),
		}, nil
	case map[string]interface{}:
		return p, nil
	}
	return nil, fmt.Errorf("expected a point, got %T", value)
}

func crsName(srid uint32) string {
	if name, ok := crsNames[srid]; ok {
		return name
	}
	return fmt.Sprintf("srid-%d", srid)
}

// coerceScalar converts a driver value into the JSON value of a GraphQL scalar.
func coerceScalar(name string, value interface{}) (interface{}, error) {
	switch name {
	case "String":
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		return fmt.Sprint(value), nil

	case "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case int64:
			return fmt.Sprint(v), nil
		}

	case "Int":
		switch v := value.(type) {
		case int64:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("Int cannot represent %d", v)
			}
			return v, nil
		case float64:
			if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
				return int64(v), nil
			}
		}

	case "Float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}

	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, nil
		}

	case "Date":
		switch v := value.(type) {
		case neo4j.Date:
			return v.Time().Format(time.DateOnly), nil
		case time.Time:
			return v.Format(time.DateOnly), nil
		case string:
			return v, nil
		}

	case "DateTime":
		switch v := value.(type) {
		case time.Time:
			return v.Format(time.RFC3339Nano), nil
		case neo4j.LocalDateTime:
			return v.Time().Format("2006-01-02T15:04:05.999999999"), nil
		case string:
			return v, nil
		}

	default:
		return value, nil
	}
	return nil, fmt.Errorf("%s cannot represent %T", name, value)
}
