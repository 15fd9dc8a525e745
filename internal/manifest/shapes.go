package manifest

import (
	"fmt"
	"regexp"
)

// ShapeKind identifies one known chunk-loader composition template.
type ShapeKind int

const (
	// ShapeNone means no shape matched and the fallback found nothing either.
	ShapeNone ShapeKind = iota
	// ShapeNameHash is "<prefix>" + ({names}[e]||e) + "<sep>" + {hashes}[e] + "<suffix>".
	ShapeNameHash
	// ShapeHashOnly is ({hashes}[e] + "<suffix>"), a bare filename.
	ShapeHashOnly
	// ShapeIDHash is "<prefix>" + e + "<sep>" + {hashes}[e] + "<suffix>".
	ShapeIDHash
	// ShapeSingleTable is {table}[e] + "<suffix>", a bare filename.
	ShapeSingleTable
	// ShapeFallback means the loose fallback scan produced the result.
	ShapeFallback
)

var shapeNames = map[ShapeKind]string{
	ShapeNone:        "none",
	ShapeNameHash:    "name_hash",
	ShapeHashOnly:    "hash_only",
	ShapeIDHash:      "id_hash",
	ShapeSingleTable: "single_table",
	ShapeFallback:    "fallback",
}

// String returns the stable name of the shape.
func (k ShapeKind) String() string {
	if name, ok := shapeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(k))
}

// MarshalText encodes the shape by name.
func (k ShapeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NameSource says where the symbolic segment of a chunk path comes from.
type NameSource string

const (
	NameNone       NameSource = "none"
	NameTable      NameSource = "table"
	NameIdentifier NameSource = "identifier"
)

// HashSource says whether a hash table feeds the chunk path.
type HashSource string

const (
	HashNone  HashSource = "none"
	HashTable HashSource = "table"
)

// ChunkShapeTemplate describes how a recognized loader builds a chunk path.
type ChunkShapeTemplate struct {
	Kind      ShapeKind  `json:"kind"`
	BasePath  string     `json:"basePath"`
	Name      NameSource `json:"name"`
	Separator string     `json:"separator"`
	Hash      HashSource `json:"hash"`
	Extension string     `json:"extension"`
}

// Match is a structural hit of one shape inside the bootstrap text.
// Table spans are raw object-literal text; decoding happens later.
type Match struct {
	Kind      ShapeKind
	Param     string // the loader's chunk-id parameter name
	Prefix    string
	Separator string
	Suffix    string
	NameSpan  string
	HashSpan  string
	Offset    int
}

// Template returns the composition template the match stands for.
func (m *Match) Template() ChunkShapeTemplate {
	t := ChunkShapeTemplate{
		Kind:      m.Kind,
		BasePath:  m.Prefix,
		Separator: m.Separator,
		Extension: m.Suffix,
		Name:      NameNone,
		Hash:      HashTable,
	}
	switch m.Kind {
	case ShapeNameHash:
		t.Name = NameTable
	case ShapeIDHash:
		t.Name = NameIdentifier
	}
	return t
}

const (
	identPat  = `([A-Za-z_$][\w$]*)`
	tablePat  = `(\{[^}]*\})`
	stringPat = `"([^"]*)"`
	plusPat   = `\s*\+\s*`

	// loaderHead matches `n.u=e=>` and `u=(e)=>`.
	loaderHead = `(?:[\w$]+\.)?\bu\s*=\s*\(?\s*` + identPat + `\s*\)?\s*=>\s*`
)

// matcher is one structural recognizer.
type matcher struct {
	kind ShapeKind
	re   *regexp.Regexp
	// idGroups are capture groups that must repeat the loader parameter.
	idGroups []int
	build    func(g func(int) string) Match
}

// matchers are tried in this order; later shapes are looser and would
// over-match the earlier ones.
var matchers = []matcher{
	{
		kind: ShapeNameHash,
		re: regexp.MustCompile(loaderHead + stringPat + plusPat +
			`\(\s*` + tablePat + `\[` + identPat + `\]\s*\|\|\s*` + identPat + `\s*\)` + plusPat +
			stringPat + plusPat + tablePat + `\[` + identPat + `\]` + plusPat + stringPat),
		idGroups: []int{4, 5, 8},
		build: func(g func(int) string) Match {
			return Match{Prefix: g(2), NameSpan: g(3), Separator: g(6), HashSpan: g(7), Suffix: g(9)}
		},
	},
	{
		kind: ShapeHashOnly,
		re: regexp.MustCompile(loaderHead + `\(\s*` + tablePat + `\[` + identPat + `\]` +
			plusPat + stringPat + `\s*\)`),
		idGroups: []int{3},
		build: func(g func(int) string) Match {
			return Match{HashSpan: g(2), Suffix: g(4)}
		},
	},
	{
		kind: ShapeIDHash,
		re: regexp.MustCompile(loaderHead + stringPat + plusPat + identPat + plusPat +
			stringPat + plusPat + tablePat + `\[` + identPat + `\]` + plusPat + stringPat),
		idGroups: []int{3, 6},
		build: func(g func(int) string) Match {
			return Match{Prefix: g(2), Separator: g(4), HashSpan: g(5), Suffix: g(7)}
		},
	},
	{
		kind: ShapeSingleTable,
		re: regexp.MustCompile(loaderHead + `\(?\s*` + tablePat + `\[` + identPat + `\]` +
			plusPat + stringPat),
		idGroups: []int{3},
		build: func(g func(int) string) Match {
			return Match{HashSpan: g(2), Suffix: g(4)}
		},
	},
}

// find returns the first occurrence of the matcher's signature whose table
// lookups use the loader parameter.
// A rejected occurrence only advances the search by one byte, since a valid
// loader may start inside it.
func (m matcher) find(text string) (*Match, bool) {
	for start := 0; start < len(text); {
		loc := m.re.FindStringSubmatchIndex(text[start:])
		if loc == nil {
			return nil, false
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += start
			}
		}
		next := loc[0] + 1

		// \b is blind to the byte before the slice.
		if loc[0] == start && start > 0 && text[start] == 'u' && isIdentByte(text[start-1]) {
			start = next
			continue
		}

		g := groupFunc(text, loc)
		param := g(1)
		consistent := true
		for _, i := range m.idGroups {
			if g(i) != param {
				consistent = false
				break
			}
		}
		if !consistent {
			start = next
			continue
		}
		match := m.build(g)
		match.Kind = m.kind
		match.Param = param
		match.Offset = loc[0]
		return &match, true
	}
	return nil, false
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// MatchShape runs the matchers in priority order and returns the first hit.
func MatchShape(text string) (*Match, bool) {
	for _, m := range matchers {
		if match, ok := m.find(text); ok {
			return match, true
		}
	}
	return nil, false
}

func groupFunc(text string, loc []int) func(int) string {
	return func(i int) string {
		if 2*i+1 >= len(loc) || loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}
}
