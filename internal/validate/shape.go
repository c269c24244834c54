package validate

import (
	"errors"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

// shapeSchemaJSON describes the containers the normalizer relies on. Anything
// violating it is structure the normalizer had to throw away.
const shapeSchemaJSON = `{
  "type": "object",
  "properties": {
    "po":     {"type": ["object", "null"]},
    "header": {"type": ["object", "null"]},
    "items":  {"type": ["array", "null"], "items": {"type": "object"}},
    "lines":  {"type": ["array", "null"], "items": {"type": "object"}}
  }
}`

var shapeSchema = jsonschema.MustCompileString("po-shape.json", shapeSchemaJSON)

// Shape checks the raw parsed document and reports a TypeMismatch for every
// container of the wrong type.
func Shape(doc any) []entity.ValidationError {
	err := shapeSchema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []entity.ValidationError{{Kind: entity.TypeMismatch, Message: err.Error()}}
	}
	var out []entity.ValidationError
	collectLeaves(ve, &out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]entity.ValidationError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, typeMismatch(ve))
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

func typeMismatch(ve *jsonschema.ValidationError) entity.ValidationError {
	loc := strings.Trim(ve.InstanceLocation, "/")
	if loc == "" {
		loc = "document"
	}
	e := entity.ValidationError{
		Kind:    entity.TypeMismatch,
		Message: loc + ": " + ve.Message,
	}
	parts := strings.Split(loc, "/")
	if len(parts) == 2 && (parts[0] == "items" || parts[0] == "lines") {
		if i, err := strconv.Atoi(parts[1]); err == nil {
			e.ItemIndex = &i
		}
	}
	return e
}
