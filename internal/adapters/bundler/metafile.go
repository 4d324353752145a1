package bundler

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Metafile is the subset of esbuild's metafile the pipeline reads: the
// input paths, in the order esbuild listed them.
type Metafile struct {
	inputs []string
}

func ParseMetafile(data string) (*Metafile, error) {
	if !gjson.Valid(data) {
		return nil, fmt.Errorf("failed to decode metafile: invalid JSON")
	}

	inputs := gjson.Get(data, "inputs")
	if inputs.Exists() && !inputs.IsObject() {
		return nil, fmt.Errorf("failed to read metafile inputs: expected object, got %s", inputs.Type)
	}

	m := &Metafile{}
	inputs.ForEach(func(key, _ gjson.Result) bool {
		m.inputs = append(m.inputs, key.String())
		return true
	})
	return m, nil
}

// InputPaths lists input paths, relative to the working directory, in
// metafile order.
func (m *Metafile) InputPaths() []string {
	return append([]string(nil), m.inputs...)
}
