package manifest

import "regexp"

// cssLoaderRe matches the stylesheet loader emitted next to the JS loader:
// n.miniCssF=e=>"static/css/"+e+"."+{...}[e]+".chunk.css" (the id segment is optional).
var cssLoaderRe = regexp.MustCompile(`(?:[\w$]+\.)?\b(?:miniCssF|cssF)\s*=\s*\(?\s*` + identPat + `\s*\)?\s*=>\s*` +
	stringPat + plusPat + `(?:` + identPat + plusPat + stringPat + plusPat + `)?` +
	tablePat + `\[` + identPat + `\]` + plusPat + stringPat)

// CSSManifest is the decoded stylesheet chunk manifest. It addresses a
// different asset class and never contributes to the JS path set.
type CSSManifest struct {
	IDs   []ChunkID `json:"ids"`
	Paths []string  `json:"paths"`
}

// MatchCSS recognizes a stylesheet chunk loader anywhere in text.
func MatchCSS(text string) (*CSSManifest, bool) {
	for _, loc := range cssLoaderRe.FindAllStringSubmatchIndex(text, -1) {
		g := groupFunc(text, loc)
		param := g(1)
		if g(6) != param || (g(3) != "" && g(3) != param) {
			continue
		}

		prefix, withID, sep, suffix := g(2), g(3) != "", g(4), g(7)
		table := DecodeTable(g(5))

		css := &CSSManifest{}
		seen := NewPathSet()
		for _, id := range table.Keys() {
			hash, _ := table.Get(id)
			file := hash + suffix
			if withID {
				file = id + sep + hash + suffix
			}
			css.IDs = append(css.IDs, id)
			p := rootRelative(prefix, file)
			if !seen.Contains(p) {
				seen.Add(p)
				css.Paths = append(css.Paths, p)
			}
		}
		return css, true
	}
	return nil, false
}
