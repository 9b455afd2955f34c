package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/mapstructure"

	"github.com/manthysbr/partsdesk/internal/core/domain"
)

// paramBinder validates raw tool parameters against the tool's declared
// schema and decodes them into a typed struct.
type paramBinder struct {
	tool   string
	params domain.ToolParameters
	schema *openapi3.Schema
}

// newParamBinder compiles a ToolParameters definition. The definitions are
// static, so a compile failure is a programming error.
func newParamBinder(tool string, params domain.ToolParameters) *paramBinder {
	doc := map[string]interface{}{
		"type":       params.Type,
		"properties": params.Properties,
	}
	if len(params.Required) > 0 {
		doc["required"] = params.Required
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("tool %s: marshal parameters: %v", tool, err))
	}
	schema := openapi3.NewSchema()
	if err := json.Unmarshal(raw, schema); err != nil {
		panic(fmt.Sprintf("tool %s: compile parameters: %v", tool, err))
	}
	return &paramBinder{tool: tool, params: params, schema: schema}
}

// Bind cleans params, validates them and decodes into out (a pointer to a
// struct with mapstructure tags). Every failure wraps ErrInvalidParameters.
func (b *paramBinder) Bind(params map[string]interface{}, out interface{}) error {
	if err := b.Validate(params); err != nil {
		return err
	}
	cleaned, err := b.clean(params)
	if err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%s: build decoder: %w", b.tool, err)
	}
	if err := dec.Decode(cleaned); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidParameters, b.tool, err)
	}
	return nil
}

// Validate checks params against the schema without decoding them.
func (b *paramBinder) Validate(params map[string]interface{}) error {
	cleaned, err := b.clean(params)
	if err != nil {
		return err
	}
	if err := b.schema.VisitJSON(cleaned, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("%w: %s: %s", domain.ErrInvalidParameters, b.tool, describeSchemaError(err))
	}
	return nil
}

// clean round-trips params through JSON so Go callers and JSON callers look
// the same to the validator, trims strings, drops blank values (so a blank
// required field fails as missing) and lowercases enum values.
func (b *paramBinder) clean(params map[string]interface{}) (map[string]interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidParameters, b.tool, err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidParameters, b.tool, err)
	}

	out := make(map[string]interface{}, len(generic))
	for k, v := range generic {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if b.hasEnum(k) {
				s = strings.ToLower(s)
			}
			v = s
		}
		out[k] = v
	}
	return out, nil
}

func (b *paramBinder) hasEnum(name string) bool {
	prop, ok := b.params.Properties[name].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = prop["enum"]
	return ok
}

// describeSchemaError flattens kin-openapi errors into one short line
// without the schema dump.
func describeSchemaError(err error) string {
	var msgs []string
	if me, ok := err.(openapi3.MultiError); ok {
		for _, e := range me {
			msgs = append(msgs, describeSchemaError(e))
		}
		return strings.Join(msgs, "; ")
	}
	if se, ok := err.(*openapi3.SchemaError); ok {
		field := strings.Join(se.JSONPointer(), ".")
		if field != "" {
			return field + ": " + se.Reason
		}
		return se.Reason
	}
	return err.Error()
}
