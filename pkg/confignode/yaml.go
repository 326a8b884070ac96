package confignode

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const mergeTag = "!!merge"

// ErrExcessiveAliasing is returned for documents whose aliases expand into a
// tree far larger than the document itself.
var ErrExcessiveAliasing = errors.New("document contains excessive aliasing")

// Parse decodes the first YAML document in data into a node tree.
// An empty document yields a null scalar.
func Parse(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return FromYAML(&doc)
}

// FromYAML converts a yaml.v3 node into a configuration tree. Aliases are
// resolved to their anchored node; an alias that refers back to one of its
// own ancestors becomes a null scalar. Merge keys (<<) are flattened the way
// YAML 1.1 loaders do: merged entries come first and explicit keys win.
//
// Alias expansion is bounded with the same ratio yaml.v3 applies when
// decoding into Go values; a tree made mostly of expanded aliases fails with
// ErrExcessiveAliasing.
func FromYAML(n *yaml.Node) (Node, error) {
	c := converter{active: make(map[*yaml.Node]bool)}
	root := c.convert(n)
	if c.err != nil {
		return nil, c.err
	}
	return root, nil
}

type converter struct {
	active map[*yaml.Node]bool

	// Materialized nodes in total and those produced inside an alias.
	nodes      int
	aliased    int
	aliasDepth int
	err        error
}

// allowedAliasRatio mirrors yaml.v3: small documents may be almost entirely
// aliases, large ones are held to a tighter share.
func allowedAliasRatio(nodes int) float64 {
	switch {
	case nodes <= 400000:
		return 0.99
	case nodes >= 4000000:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(nodes-400000)/3600000)
	}
}

// count records one materialized node and reports whether the alias budget
// still holds.
func (c *converter) count() bool {
	if c.err != nil {
		return false
	}
	c.nodes++
	if c.aliasDepth > 0 {
		c.aliased++
	}
	if c.aliased > 100 && c.nodes > 1000 && float64(c.aliased)/float64(c.nodes) > allowedAliasRatio(c.nodes) {
		c.err = ErrExcessiveAliasing
		return false
	}
	return true
}

func (c *converter) convert(n *yaml.Node) Node {
	if n == nil {
		return Null()
	}
	if !c.count() || c.active[n] {
		return Null()
	}
	c.active[n] = true
	defer delete(c.active, n)

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null()
		}
		return c.convert(n.Content[0])
	case yaml.AliasNode:
		c.aliasDepth++
		defer func() { c.aliasDepth-- }()
		return c.convert(n.Alias)
	case yaml.SequenceNode:
		seq := &Sequence{Items: make([]Node, 0, len(n.Content))}
		for _, item := range n.Content {
			if c.err != nil {
				break
			}
			seq.Items = append(seq.Items, c.convert(item))
		}
		return seq
	case yaml.MappingNode:
		return c.mapping(n)
	case yaml.ScalarNode:
		return &Scalar{Value: n.Value, Tag: n.ShortTag()}
	default:
		return Null()
	}
}

func (c *converter) mapping(n *yaml.Node) *Mapping {
	m := NewMapping()
	var own []Entry
	for i := 0; i+1 < len(n.Content) && c.err == nil; i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if key.Kind == yaml.ScalarNode && key.ShortTag() == mergeTag {
			for _, e := range c.mergeEntries(value) {
				m.Set(e.Key, e.Value)
			}
			continue
		}
		own = append(own, Entry{Key: keyString(key), Value: c.convert(value)})
	}
	for _, e := range own {
		m.Set(e.Key, e.Value)
	}
	return m
}

// mergeEntries returns the entries contributed by a merge value. For a list of
// mappings the earlier mappings take precedence, so they are applied last.
func (c *converter) mergeEntries(value *yaml.Node) []Entry {
	var sources []*Mapping
	switch merged := c.convert(value).(type) {
	case *Mapping:
		sources = append(sources, merged)
	case *Sequence:
		for i := len(merged.Items) - 1; i >= 0; i-- {
			if mm, ok := merged.Items[i].(*Mapping); ok {
				sources = append(sources, mm)
			}
		}
	}
	var out []Entry
	for _, src := range sources {
		out = append(out, src.Entries()...)
	}
	return out
}

func keyString(key *yaml.Node) string {
	for key.Kind == yaml.AliasNode && key.Alias != nil {
		key = key.Alias
	}
	if key.Kind == yaml.ScalarNode {
		return key.Value
	}
	// Complex keys are rare in configuration files; fall back to their YAML text.
	out, err := yaml.Marshal(key)
	if err != nil {
		return fmt.Sprintf("%v", key.Value)
	}
	return string(out)
}

// ToYAML converts a configuration tree back into a yaml.v3 node.
func ToYAML(n Node) *yaml.Node {
	switch v := n.(type) {
	case *Mapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range v.Entries() {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: TagStr, Value: e.Key},
				ToYAML(e.Value),
			)
		}
		return out
	case *Sequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items {
			out.Content = append(out.Content, ToYAML(item))
		}
		return out
	case *Scalar:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: v.Tag, Value: v.Value}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: TagNull, Value: "null"}
	}
}

// Encode renders a configuration tree as YAML text.
func Encode(n Node) ([]byte, error) {
	return yaml.Marshal(ToYAML(n))
}
