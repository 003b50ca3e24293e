package pipeline

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/narrative-cli/internal/model"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// EncodeExport writes exp as indented JSON or as YAML with the same keys in
// the same order.
func EncodeExport(w io.Writer, exp model.PipelineExport, format string) error {
	b, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal export")
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
		b = append(b, '\n')
		_, err = w.Write(b)
		return eris.Wrap(err, "pipeline: write export")
	case FormatYAML, "yml":
		// JSON is valid YAML; decoding it into a node tree keeps key order.
		var doc yaml.Node
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return eris.Wrap(err, "pipeline: convert export")
		}
		blockStyle(&doc)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return eris.Wrap(err, "pipeline: write export")
		}
		return eris.Wrap(enc.Close(), "pipeline: write export")
	default:
		return eris.Errorf("pipeline: unknown export format %q", format)
	}
}

// blockStyle resets the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
