package anchorbuilder

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// responseSchemaJSON is the structured-output schema sent alongside every
// anchor-generation request and enforced again locally on the response.
// Word
// counts per string are checked by the vocabulary guard, which tokenizes;
// the schema bounds types, counts, and character lengths.
var responseSchemaJSON = json.RawMessage(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action", "resource", "data", "risk"],
  "additionalProperties": false,
  "properties": {
    "action":   {"$ref": "#/$defs/anchorList"},
    "resource": {"$ref": "#/$defs/anchorList"},
    "data":     {"$ref": "#/$defs/anchorList"},
    "risk":     {"$ref": "#/$defs/anchorList"}
  },
  "$defs": {
    "anchorList": {
      "type": "array",
      "minItems": 2,
      "maxItems": 4,
      "items": {"type": "string", "minLength": 10, "maxLength": 200}
    }
  }
}`)

const responseSchemaURL = "https://guard.schemas.local/anchor_response.schema.json"

var responseSchema = mustCompileResponseSchema()

func mustCompileResponseSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(responseSchemaURL, strings.NewReader(string(responseSchemaJSON))); err != nil {
		panic("anchor response schema load failed: " + err.Error())
	}
	compiled, err := c.Compile(responseSchemaURL)
	if err != nil {
		panic("anchor response schema compile failed: " + err.Error())
	}
	return compiled
}

// validateResponse checks the raw LLM output against the response schema
// and decodes it into Texts, canonicalizing each string (lowercase, single
// spaces) so identical anchors encode identically.
func validateResponse(raw json.RawMessage) (*Texts, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure,
			"anchor response is not valid JSON", err)
	}
	if err := responseSchema.Validate(generic); err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure,
			"anchor response failed schema validation", err)
	}

	var texts Texts
	if err := json.Unmarshal(raw, &texts); err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure,
			"decoding anchor response", err)
	}
	canonicalizeList(texts.Action)
	canonicalizeList(texts.Resource)
	canonicalizeList(texts.Data)
	canonicalizeList(texts.Risk)
	return &texts, nil
}

func canonicalizeList(list []string) {
	for i, s := range list {
		list[i] = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
}
