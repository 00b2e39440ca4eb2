package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST.
//
// HNode is a stripped-down parallel of the compiler AST with no position
// data. Two programs that differ only in whitespace, comments, or source
// layout produce identical hashing trees.
// ---------------------------------------------------------------------------

// HashVersion is bumped whenever the normalized encoding changes shape.
// It is mixed into every fingerprint so stale cache entries never collide
// with entries from a newer encoder.
const HashVersion = 1

// HNode is one node of the frozen tree. A single generic shape keeps the
// canonical encoding simple: kind discriminates, the value fields carry
// leaf payloads, and Kids holds children in syntactic order.
type HNode struct {
	Kind  string   `cbor:"k"`
	Name  string   `cbor:"n,omitempty"`
	Int   int64    `cbor:"i,omitempty"`
	Float float64  `cbor:"f,omitempty"`
	Bool  bool     `cbor:"b,omitempty"`
	Strs  []string `cbor:"s,omitempty"`
	Kids  []HNode  `cbor:"c,omitempty"`
}

func leaf(kind string) HNode {
	return HNode{Kind: kind}
}

func named(kind, name string) HNode {
	return HNode{Kind: kind, Name: name}
}
