// Package protocol loads the protocol definition and installs it into the
// customer's store exactly once.
package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"vctodwn/internal/dwn/models"
	dErrors "vctodwn/pkg/domain-errors"
)

//go:embed definitions/vc-protocol.json
var defaultDefinition []byte

// DefaultDefinition returns the built-in verifiable credential protocol.
func DefaultDefinition() (models.ProtocolDefinition, error) {
	return ParseDefinition(defaultDefinition, ".json")
}

// LoadDefinition reads a definition file (JSON, or YAML by extension). An empty
// path selects the built-in definition.
func LoadDefinition(path string) (models.ProtocolDefinition, error) {
	if path == "" {
		return DefaultDefinition()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.ProtocolDefinition{}, dErrors.Wrap(err, dErrors.CodeValidation, "read protocol definition")
	}
	return ParseDefinition(raw, filepath.Ext(path))
}

// ParseDefinition decodes and validates a definition. YAML documents are
// converted to JSON first so both formats share the same decoding rules.
func ParseDefinition(raw []byte, ext string) (models.ProtocolDefinition, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		converted, err := yamlToJSON(raw)
		if err != nil {
			return models.ProtocolDefinition{}, dErrors.Wrap(err, dErrors.CodeValidation, "parse protocol definition yaml")
		}
		raw = converted
	case ".json", "":
	default:
		return models.ProtocolDefinition{}, dErrors.New(dErrors.CodeValidation, "unsupported protocol definition format "+ext)
	}

	var def models.ProtocolDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return models.ProtocolDefinition{}, dErrors.Wrap(err, dErrors.CodeValidation, "parse protocol definition")
	}
	if err := def.Validate(); err != nil {
		return models.ProtocolDefinition{}, err
	}
	return def, nil
}

// Render formats a definition the way GET /vc-protocol serves it.
func Render(def models.ProtocolDefinition) ([]byte, error) {
	return json.MarshalIndent(def, "", "  ")
}

// yamlToJSON converts a YAML document to JSON, keeping mapping key order.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeYAMLNode(&buf, &doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeYAMLNode(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNode(buf, node.Content[0])
	case yaml.AliasNode:
		return writeYAMLNode(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: non-scalar mapping key", key.Line)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(key.Value)
			buf.Write(k)
			buf.WriteByte(':')
			if err := writeYAMLNode(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return err
		}
		out, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		buf.Write(out)
		return nil
	}
}
