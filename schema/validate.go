package schema

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// checkInverses verifies that both sides of every relationship agree.
//
// A relationship field's back-references are the relationship fields of the related
// type that point back at the declaring type. When back-references exist, one of them
// must carry the same label with the inverse direction. A relationship without any
// back-reference is one-sided and accepted.
func checkInverses(s *Schema) error {
	var result *multierror.Error

	for _, t := range s.types {
		for _, f := range t.Fields {
			if f.Kind != RelationshipField {
				continue
			}
			rel := f.Relationship
			target := s.Type(rel.Target)
			if target == nil {
				result = multierror.Append(result, fmt.Errorf("%s.%s: unknown target type %s", t.Name, f.Name, rel.Target))
				continue
			}

			var backRefs, sameLabel []*Field
			for _, candidate := range target.Fields {
				if candidate == f || candidate.Kind != RelationshipField || candidate.Relationship.Target != t.Name {
					continue
				}
				backRefs = append(backRefs, candidate)
				if candidate.Relationship.Label == rel.Label {
					sameLabel = append(sameLabel, candidate)
				}
			}
			if len(backRefs) == 0 {
				continue
			}
			if len(sameLabel) == 0 {
				result = multierror.Append(result, fmt.Errorf(
					"%s.%s: %s points back at %s but never with relationship type %s",
					t.Name, f.Name, target.Name, t.Name, rel.Label))
				continue
			}

			matched := false
			for _, back := range sameLabel {
				if back.Relationship.Direction == rel.Direction.Inverse() {
					matched = true
					break
				}
			}
			if !matched {
				result = multierror.Append(result, fmt.Errorf(
					"%s.%s: %s %s must be declared %s on %s.%s, found %s",
					t.Name, f.Name, rel.Label, rel.Direction, rel.Direction.Inverse(),
					target.Name, sameLabel[0].Name, sameLabel[0].Relationship.Direction))
			}
		}
	}
	return result.ErrorOrNil()
}
