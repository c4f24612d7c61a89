package contract

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// EntryFields are the keys every match entry must carry.
var EntryFields = []string{"email_item", "work_order_id", "confidence", "evidence"}

// entrySchemaDoc describes a single element of "matches". Values are loosely
// typed on purpose; coercion happens after the structural check.
func entrySchemaDoc() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": EntryFields,
		"properties": map[string]any{
			"evidence": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"primary_signals":    map[string]any{"type": []string{"array", "string", "null"}},
					"supporting_signals": map[string]any{"type": []string{"array", "string", "null"}},
					"concerns":           map[string]any{"type": []string{"array", "string", "null"}},
				},
			},
			"amount_comparison": map[string]any{"type": []string{"object", "null"}},
		},
	}
}

var entrySchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(entrySchemaDoc())
	if err != nil {
		return nil, eris.Wrap(err, "contract: marshal entry schema")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("entry.json", bytes.NewReader(b)); err != nil {
		return nil, eris.Wrap(err, "contract: add entry schema")
	}
	schema, err := compiler.Compile("entry.json")
	if err != nil {
		return nil, eris.Wrap(err, "contract: compile entry schema")
	}
	return schema, nil
})

// checkEntry validates one decoded match entry against the entry schema.
func checkEntry(v any) error {
	schema, err := entrySchema()
	if err != nil {
		return err
	}
	return schema.Validate(v)
}
