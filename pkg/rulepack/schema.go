package rulepack

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://idp.local/schemas/rulepack.schema.json"

//go:embed schema/rulepack.schema.json
var schemaSource string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Schema returns the JSON Schema rule pack documents are validated against.
func Schema() string {
	return schemaSource
}

func packSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// validateSchema checks a decoded JSON document and records one issue per
// leaf violation.
func validateSchema(doc any, issues *IssueList) error {
	schema, err := packSchema()
	if err != nil {
		return err
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("validate rule pack: %w", err)
	}
	for _, leaf := range leafCauses(verr) {
		issues.Add(&Issue{
			Type:    IssueSchema,
			Level:   LevelError,
			Index:   ruleIndex(leaf.InstanceLocation),
			Path:    displayPath(leaf.InstanceLocation),
			Message: leaf.Message,
		})
	}
	return nil
}

func leafCauses(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		out = append(out, leafCauses(cause)...)
	}
	return out
}

func displayPath(location string) string {
	if location == "" {
		return "/"
	}
	return location
}

// ruleIndex extracts N from an instance location of the form /rules/N/...,
// or returns -1.
func ruleIndex(location string) int {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(location, "#"), "/rules/")
	if !ok {
		return -1
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	n := 0
	for _, c := range rest {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	if rest == "" {
		return -1
	}
	return n
}
