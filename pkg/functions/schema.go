package functions

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

// mustCompileSchema compiles a handler's input schema at construction
// time. Schemas are compile-time constants, so a failure here is a
// programming error and aborts startup.
func mustCompileSchema(key, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://canopy.schemas.local/functions/%s.schema.json", key)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("schema load for %s: %v", key, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("schema compile for %s: %v", key, err))
	}
	return compiled
}

// validateArgs checks normalized arguments against a compiled schema and
// converts the first violation into a MissingRequiredInput error with
// field-level detail.
func validateArgs(schema *jsonschema.Schema, args map[string]any) *contracts.Error {
	if args == nil {
		args = map[string]any{}
	}
	err := schema.Validate(map[string]any(args))
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return contracts.NewMissingInput("", err.Error())
	}
	leaf := leafCause(ve)
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	field = strings.ReplaceAll(field, "/", ".")
	return contracts.NewMissingInput(field, leaf.Message)
}

func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// numArg extracts a numeric argument. JSON decoding yields float64 for
// every number; ints are accepted for callers constructing args in Go.
func numArg(args map[string]any, name string) (float64, bool) {
	switch v := args[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
