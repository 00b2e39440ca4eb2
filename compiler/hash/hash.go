package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"

	"github.com/vibelang/vl/compiler"
)

// encMode is the canonical CBOR encoder shared by all hashing calls.
// Canonical form fixes map key order and float encoding so the same tree
// always produces the same bytes.
var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(err)
	}
}

// Serialize produces the canonical byte encoding of a frozen tree. The
// version byte leads so encoder changes never alias older fingerprints.
func Serialize(node HNode) ([]byte, error) {
	data, err := encMode.Marshal(node)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(HashVersion))
	out = append(out, data...)
	return out, nil
}

// HashProgram computes the SHA-256 content hash of a parsed program.
//
// The hash covers the normalized AST only: formatting, comments, and
// source positions do not affect it. Programs with identical structure
// hash identically regardless of layout.
func HashProgram(prog *compiler.Program) ([32]byte, error) {
	data, err := Serialize(NormalizeProgram(prog))
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Fingerprint returns the hex form of HashProgram, suitable as a cache
// key.
func Fingerprint(prog *compiler.Program) (string, error) {
	sum, err := HashProgram(prog)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum[:]), nil
}
