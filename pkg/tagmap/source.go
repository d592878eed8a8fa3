package tagmap

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source loads the full mapping in one call. Sources are consulted once at
// startup; the gateway never reloads a Map while running.
type Source interface {
	Load(ctx context.Context) (*Map, error)
}

// mappingDocument is the on-disk shape of a mapping file:
//
//	tags:
//	  legacy/plc_01/register_4001:
//	    unit: "°C"
//	    asset_id: oven-01
//	    description: Oven Temp
//	    uns_topic: enterprise/site/line/oven-01/temperature
type mappingDocument struct {
	Tags map[string]Entry `yaml:"tags"`
}

// FileSource reads the mapping from a YAML file.
type FileSource struct {
	Path string
}

// Load implements Source.
func (s FileSource) Load(_ context.Context) (*Map, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ConfigError{Source: s.Path, Reason: "cannot read mapping file", Err: err}
	}
	return ParseYAML(s.Path, raw)
}

// ParseYAML decodes a mapping document. source labels any error.
func ParseYAML(source string, raw []byte) (*Map, error) {
	var doc mappingDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigError{Source: source, Reason: "malformed YAML", Err: err}
	}
	if doc.Tags == nil {
		return nil, &ConfigError{Source: source, Reason: fmt.Sprintf("missing %q section", "tags")}
	}
	return New(source, doc.Tags)
}
