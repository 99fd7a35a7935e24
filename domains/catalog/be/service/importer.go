package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed product_import.schema.json
var importSchema []byte

const importSchemaURL = "memory://schemas/catalog/product-import.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func importValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(importSchemaURL, bytes.NewReader(importSchema)); err != nil {
			compileErr = fmt.Errorf("register import schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(importSchemaURL)
	})
	return compiledSchema, compileErr
}

type importDocument struct {
	Products []struct {
		Name        string `json:"name"`
		Price       int64  `json:"price"`
		Stock       int    `json:"stock"`
		Weight      int    `json:"weight"`
		Description string `json:"description"`
	} `json:"products"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Created []Product
}

// ParseImport reads a YAML (or JSON) product list and validates it against the import schema.
func ParseImport(r io.Reader) ([]Input, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}

	var document any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON-native types.
	payload, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("normalise import file: %w", err)
	}
	var normalised any
	if err := json.Unmarshal(payload, &normalised); err != nil {
		return nil, fmt.Errorf("normalise import file: %w", err)
	}

	schema, err := importValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(normalised); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var doc importDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	inputs := make([]Input, 0, len(doc.Products))
	for _, p := range doc.Products {
		inputs = append(inputs, Input{Name: p.Name, Price: p.Price, Stock: p.Stock, Weight: p.Weight, Description: p.Description})
	}
	return inputs, nil
}

// Import creates every product of the file for the tenant. The file is validated in full
// before the first product is written.
func (s *Service) Import(ctx context.Context, tenantID string, r io.Reader) (ImportResult, error) {
	inputs, err := ParseImport(r)
	if err != nil {
		return ImportResult{}, err
	}
	for i, in := range inputs {
		if _, err := validate(in); err != nil {
			return ImportResult{}, fmt.Errorf("product %d: %w", i+1, err)
		}
	}

	result := ImportResult{Created: make([]Product, 0, len(inputs))}
	for i, in := range inputs {
		p, err := s.Create(ctx, tenantID, in)
		if err != nil {
			return result, fmt.Errorf("create product %d: %w", i+1, err)
		}
		result.Created = append(result.Created, p)
	}
	return result, nil
}
