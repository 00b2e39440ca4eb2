package hash

import (
	"testing"

	"github.com/vibelang/vl/compiler"
)

func fingerprint(t *testing.T, src string) string {
	t.Helper()
	prog, err := compiler.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	fp, err := Fingerprint(prog)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	return fp
}

func TestFingerprintStableAcrossFormatting(t *testing.T) {
	base := fingerprint(t, "fn:add|i:int,int|o:int|ret:op:+(i0,i1)\nexport:add\n")

	variants := []string{
		// Comments do not affect the hash.
		"# adds two numbers\nfn:add|i:int,int|o:int|ret:op:+(i0,i1)\nexport:add\n",
		"/* header */\nfn:add|i:int,int|o:int|ret:op:+(i0,i1)\nexport:add\n",
		// Neither does surrounding whitespace.
		"\n\nfn:add|i:int,int|o:int|ret:op:+(i0,i1)\n\n\nexport:add\n",
		"fn:add | i:int,int | o:int | ret:op:+(i0, i1)\nexport:add\n",
	}

	for _, v := range variants {
		if got := fingerprint(t, v); got != base {
			t.Errorf("fingerprint changed for formatting variant %q", v)
		}
	}
}

func TestFingerprintChangesOnSemantics(t *testing.T) {
	base := fingerprint(t, "fn:add|i:int,int|o:int|ret:op:+(i0,i1)\nexport:add\n")

	variants := []string{
		// Renamed function
		"fn:sum|i:int,int|o:int|ret:op:+(i0,i1)\nexport:sum\n",
		// Different operator
		"fn:add|i:int,int|o:int|ret:op:*(i0,i1)\nexport:add\n",
		// Different input types
		"fn:add|i:float,float|o:int|ret:op:+(i0,i1)\nexport:add\n",
		// No export
		"fn:add|i:int,int|o:int|ret:op:+(i0,i1)\n",
	}

	for _, v := range variants {
		if got := fingerprint(t, v); got == base {
			t.Errorf("fingerprint should change for %q", v)
		}
	}
}

func TestFingerprintDistinguishesLiterals(t *testing.T) {
	a := fingerprint(t, "v:x=1\n")
	b := fingerprint(t, "v:x=2\n")
	c := fingerprint(t, "v:x=1.0\n")
	if a == b {
		t.Error("different int literals should hash differently")
	}
	if a == c {
		t.Error("int and float literals should hash differently")
	}
}

func TestFingerprintCoversMetadataAndDeps(t *testing.T) {
	base := fingerprint(t, "meta:app,module,python\ndeps:math\nv:x=1\n")
	other := fingerprint(t, "meta:app,module,rust\ndeps:math\nv:x=1\n")
	if base == other {
		t.Error("metadata target should affect the fingerprint")
	}
	noDeps := fingerprint(t, "meta:app,module,python\nv:x=1\n")
	if base == noDeps {
		t.Error("deps should affect the fingerprint")
	}
}

func TestFingerprintIsHex(t *testing.T) {
	fp := fingerprint(t, "v:x=1\n")
	if len(fp) != 64 {
		t.Fatalf("fingerprint length = %d, want 64", len(fp))
	}
	for _, c := range fp {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("fingerprint has non-hex character %q", c)
		}
	}
}

func TestSerializeLeadsWithVersion(t *testing.T) {
	prog, err := compiler.Parse("v:x=1\n")
	if err != nil {
		t.Fatal(err)
	}
	data, err := Serialize(NormalizeProgram(prog))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || data[0] != byte(HashVersion) {
		t.Errorf("serialized form should start with version byte %d", HashVersion)
	}
}

func TestHashProgramDeterministic(t *testing.T) {
	src := "meta:app,module,python\nfn:f|i:int|o:int|ret:i0\nv:cfg={b:2,a:1}\n"
	prog, err := compiler.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	first, err := HashProgram(prog)
	if err != nil {
		t.Fatal(err)
	}
	second, err := HashProgram(prog)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("hashing the same program twice should be stable")
	}
}
