// Package confignode models a parsed configuration document as a closed sum
// type of mappings, sequences and scalars.
//
// Mappings keep the order their keys appear in the source document, so any
// walk over a tree is reproducible for a given input.
package confignode

// Node is one node of a configuration tree. The only implementations are
// *Mapping, *Sequence and *Scalar; switch on the concrete type to visit.
type Node interface {
	isNode()
}

// Entry is one key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value Node
}

// Mapping is an ordered string-keyed map.
type Mapping struct {
	entries []Entry
	index   map[string]int
}

// Sequence is an ordered list of nodes.
type Sequence struct {
	Items []Node
}

// Scalar is a leaf value. Tag is the resolved YAML short tag
// (!!str, !!int, !!bool, !!float, !!null, ...).
type Scalar struct {
	Value string
	Tag   string
}

// Scalar tags produced by the YAML resolver.
const (
	TagStr   = "!!str"
	TagInt   = "!!int"
	TagFloat = "!!float"
	TagBool  = "!!bool"
	TagNull  = "!!null"
)

func (*Mapping) isNode()  {}
func (*Sequence) isNode() {}
func (*Scalar) isNode()   {}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

// Set adds or replaces key. A replaced key keeps its original position.
func (m *Mapping) Set(key string, value Node) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Node, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].Value, true
}

// Entries returns the entries in document order. The slice must not be modified.
func (m *Mapping) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in document order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, m.Len())
	for _, e := range m.Entries() {
		keys = append(keys, e.Key)
	}
	return keys
}

// String returns the scalar text when the node is a string scalar.
func (s *Scalar) String() string {
	if s == nil {
		return ""
	}
	return s.Value
}

// IsString reports whether the scalar resolved to a YAML string.
func (s *Scalar) IsString() bool {
	return s != nil && s.Tag == TagStr
}

// IsNull reports whether the scalar is a YAML null.
func (s *Scalar) IsNull() bool {
	return s == nil || s.Tag == TagNull
}

// Str returns a string scalar node.
func Str(v string) *Scalar {
	return &Scalar{Value: v, Tag: TagStr}
}

// Null returns a null scalar node.
func Null() *Scalar {
	return &Scalar{Value: "null", Tag: TagNull}
}

// StringValue returns the text of n when n is a string scalar.
func StringValue(n Node) (string, bool) {
	s, ok := n.(*Scalar)
	if !ok || !s.IsString() {
		return "", false
	}
	return s.Value, true
}

// StringField returns the string stored under key in m. It reports false when
// the key is missing, the value is not a string scalar, or the string is empty.
func StringField(m *Mapping, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := StringValue(v)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// MappingField returns the mapping stored under key in m.
func MappingField(m *Mapping, key string) (*Mapping, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	mm, ok := v.(*Mapping)
	return mm, ok
}

// SequenceField returns the sequence stored under key in m.
func SequenceField(m *Mapping, key string) (*Sequence, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Sequence)
	return s, ok
}

// KindName returns a short human name for the node variant.
func KindName(n Node) string {
	switch n.(type) {
	case *Mapping:
		return "mapping"
	case *Sequence:
		return "sequence"
	case *Scalar:
		return "scalar"
	case nil:
		return "nothing"
	default:
		return "unknown"
	}
}
