package config

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"
)

var manifestSchema *jsonschema.Schema

func init() {
	bs, err := ReflectSchema()
	if err != nil {
		panic(err)
	}

	js, err := jsonschema.UnmarshalJSON(bytes.NewReader(bs))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource("manifest.json", js); err != nil {
		panic(err)
	}

	manifestSchema, err = compiler.Compile("manifest.json")
	if err != nil {
		panic(err)
	}
}

// ReflectSchema returns the JSON schema of the manifest document.
func ReflectSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(Manifest{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}

// validate checks the parts of a decoded document this package owns. Other
// top-level tables are not looked at. TOML values are normalized through JSON
// first, so dates and integers reach the validator in the shape it expects.
func validate(doc map[string]any) error {
	owned := make(map[string]any, 2)
	for _, key := range []string{languagesKey, secretsKey} {
		if v, ok := doc[key]; ok {
			owned[key] = v
		}
	}

	bs, err := json.Marshal(owned)
	if err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(bs))
	if err != nil {
		return err
	}

	return manifestSchema.Validate(v)
}

// Secrets are free-form tables; their shape is checked when they're resolved.
func (*Secret) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.Type = nil
	schema.AddType(schemareflector.Object)
	return nil
}
