package manifest

// TableRole is a best-effort guess at what a single lookup table holds.
type TableRole string

const (
	RoleUnknown TableRole = ""
	RoleName    TableRole = "name"
	RoleHash    TableRole = "hash"
)

// maxShortHashLen is the longest value LooksLikeShortHash accepts.
const maxShortHashLen = 10

// LooksLikeShortHash reports whether v could be a short content hash: hex
// digits only and at most ten characters. Short hex-like chunk names are
// misclassified; this only feeds diagnostics.
func LooksLikeShortHash(v string) bool {
	if v == "" || len(v) > maxShortHashLen {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}

// ClassifyTable guesses whether a table holds hashes or names.
func ClassifyTable(t *LookupTable) TableRole {
	if t.Len() == 0 {
		return RoleUnknown
	}
	for _, id := range t.Keys() {
		v, _ := t.Get(id)
		if !LooksLikeShortHash(v) {
			return RoleName
		}
	}
	return RoleHash
}
