package source

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/wo-matcher/internal/model"
)

// Structured reads a YAML or JSON document holding either a list of row
// objects or an object with a "work_orders" list.
type Structured struct {
	Path string
}

// Rows implements Source.
func (s *Structured) Rows(ctx context.Context) ([]model.Row, error) {
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "structured: context cancelled")
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, eris.Wrap(err, "structured: read file")
	}
	return DecodeRows(data)
}

// DecodeRows parses YAML or JSON rows from data. Non-object list elements are
// skipped.
func DecodeRows(data []byte) ([]model.Row, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "structured: decode")
	}

	var list []any
	switch t := doc.(type) {
	case nil:
		return []model.Row{}, nil
	case []any:
		list = t
	case map[string]any:
		inner, ok := t["work_orders"].([]any)
		if !ok {
			return nil, eris.New("structured: expected a list or a work_orders key")
		}
		list = inner
	default:
		return nil, eris.Errorf("structured: unexpected document type %T", doc)
	}

	rows := make([]model.Row, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, model.Row(m))
		}
	}
	return rows, nil
}
