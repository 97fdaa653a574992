package format

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/filequery/internal/query"
)

// parseYAML decodes a single YAML document into a query.Value, walking the
// yaml.Node tree rather than unmarshaling into interface{} so that mapping
// key order survives and scalar tags (!!str/!!int/!!float/!!bool/!!null)
// resolve to the matching Value variant directly. Grounded on the
// teacher's decodeYAMLLenient/yamlNodeToInterface pair, generalized to
// produce query.Value instead of interface{}.
func parseYAML(data []byte) (*query.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return query.Null(), nil
	}

	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Format: YAML, Err: err}
	}
	if len(doc.Content) == 0 {
		return query.Null(), nil
	}
	v, err := yamlNodeToValue(doc.Content[0])
	if err != nil {
		return nil, &ParseError{Format: YAML, Err: err}
	}
	return v, nil
}

func yamlNodeToValue(n *yaml.Node) (*query.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) > 0 {
			return yamlNodeToValue(n.Content[0])
		}
		return query.Null(), nil
	case yaml.MappingNode:
		obj := query.EmptyObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			key := keyNode.Value
			val, err := yamlNodeToValue(valNode)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val) // last one wins on duplicate keys, matching the teacher's lenient decode
		}
		return obj, nil
	case yaml.SequenceNode:
		items := make([]*query.Value, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := yamlNodeToValue(c)
			if err != nil {
				return nil, err
			}
			items = append(items, val)
		}
		return query.Array(items), nil
	case yaml.ScalarNode:
		return yamlScalarToValue(n)
	case yaml.AliasNode:
		if n.Alias != nil {
			return yamlNodeToValue(n.Alias)
		}
		return query.Null(), nil
	default:
		return query.Null(), nil
	}
}

func yamlScalarToValue(n *yaml.Node) (*query.Value, error) {
	switch n.Tag {
	case "!!null":
		return query.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return query.Bool(b), nil
	case "!!int":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return query.Number(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return query.FloatNumber(f), nil
	default:
		// !!str and any other tag (timestamps, binary, merge keys) degrade
		// to the literal scalar text, matching spec.md §3's "multi-line
		// strings preserved verbatim" rule.
		return query.String(n.Value), nil
	}
}

// emitYAML renders v as block-style YAML, constructing a yaml.Node tree so
// key order and the null/bool/number/string tags round-trip exactly.
func emitYAML(v *query.Value) ([]byte, error) {
	node := valueToYAMLNode(v)
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, &EmitError{Format: YAML, Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &EmitError{Format: YAML, Err: err}
	}
	return b.Bytes(), nil
}

func valueToYAMLNode(v *query.Value) *yaml.Node {
	switch v.Kind() {
	case query.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case query.KindBool:
		val := "false"
		if v.Bool() {
			val = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: val}
	case query.KindNumber:
		tag := "!!int"
		if v.NumIsFloat() || !query.IsIntegerLike(v.Num()) {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: formatJSONNumber(v)}
	case query.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str()}
	case query.KindArray:
		items := v.Items()
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: make([]*yaml.Node, len(items))}
		for i, e := range items {
			seq.Content[i] = valueToYAMLNode(e)
		}
		return seq
	case query.KindObject:
		keys := v.Keys()
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: make([]*yaml.Node, 0, len(keys)*2)}
		for _, k := range keys {
			val, _ := v.Get(k)
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, valueToYAMLNode(val))
		}
		return m
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
