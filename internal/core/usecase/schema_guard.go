package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaGuard validates records against the per-collection JSON schemas
// embedded in the binary. Schemas keep additional properties open so
// forward-compatible extension fields pass through untouched.
type SchemaGuard struct {
	compiled map[domain.Collection]*santhosh.Schema
}

func NewSchemaGuard() (*SchemaGuard, error) {
	g := &SchemaGuard{compiled: make(map[domain.Collection]*santhosh.Schema)}
	for _, c := range domain.Collections() {
		raw, err := schemaFS.ReadFile(fmt.Sprintf("schemas/%s.schema.json", c))
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", c, err)
		}
		compiled, err := compileSchema(raw)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", c, err)
		}
		g.compiled[c] = compiled
	}
	return g, nil
}

// Validate checks one record against its collection schema.
func (g *SchemaGuard) Validate(c domain.Collection, data json.RawMessage) error {
	sch, ok := g.compiled[c]
	if !ok {
		return domain.ErrInvalidCollection
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrValidation, c, err)
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s: %s", domain.ErrValidation, c, firstCause(ve))
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrValidation, c, err)
	}
	return nil
}

func compileSchema(schemaJSON json.RawMessage) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func firstCause(ve *santhosh.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.Error()
}
