package manifest

import "regexp"

// ChunkID is a chunk identifier as written in the bootstrap source (decimal digits).
type ChunkID = string

// tableEntryRe matches one `<id>:"<value>"` pair inside an object literal.
// Single-quoted values are accepted as well; values are taken verbatim.
var tableEntryRe = regexp.MustCompile(`(\d+)\s*:\s*(?:"([^"]+)"|'([^']+)')`)

// LookupTable is an id -> value mapping decoded from an object literal.
// Keys keep the order of their first appearance; a repeated key takes the last value.
type LookupTable struct {
	keys   []ChunkID
	values map[ChunkID]string
}

// NewLookupTable creates an empty table.
func NewLookupTable() *LookupTable {
	return &LookupTable{values: make(map[ChunkID]string)}
}

// Set assigns value to id.
func (t *LookupTable) Set(id ChunkID, value string) {
	if _, ok := t.values[id]; !ok {
		t.keys = append(t.keys, id)
	}
	t.values[id] = value
}

// Get returns the value for id. A nil table has no entries.
func (t *LookupTable) Get(id ChunkID) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.values[id]
	return v, ok
}

// Keys returns the identifiers in first-seen order, or nil for an empty table.
func (t *LookupTable) Keys() []ChunkID {
	if t == nil || len(t.keys) == 0 {
		return nil
	}
	out := make([]ChunkID, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of entries.
func (t *LookupTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Map returns a copy of the entries as a plain map.
func (t *LookupTable) Map() map[ChunkID]string {
	out := make(map[ChunkID]string, t.Len())
	if t == nil {
		return out
	}
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// DecodeTable decodes an object literal span of the form {<int>:"<string>",...}.
// Anything that does not fit the pattern is skipped, so malformed input
// produces a smaller or empty table rather than an error.
func DecodeTable(span string) *LookupTable {
	table := NewLookupTable()
	for _, m := range tableEntryRe.FindAllStringSubmatch(span, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		table.Set(m[1], value)
	}
	return table
}

// ExtractObjects returns every top-level balanced {...} span in expr.
//
// Braces inside string literals are not counted. A closing brace with no
// matching opener is ignored and an unterminated span is dropped.
func ExtractObjects(expr string) []string {
	var spans []string
	depth, start := 0, -1
	var quote byte
	escaped := false

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				spans = append(spans, expr[start:i+1])
				start = -1
			}
		}
	}

	return spans
}
