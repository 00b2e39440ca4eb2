package compiler

// ---------------------------------------------------------------------------
// VL type system
// ---------------------------------------------------------------------------

// TypeKind identifies a builtin VL type.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeInt
	TypeFloat
	TypeStr
	TypeBool
	TypeArr
	TypeObj
	TypeMap
	TypeSet
	TypeAny
	TypeVoid
	TypePromise
	TypeFunc
	TypeUINode
)

var typeKindNames = map[TypeKind]string{
	TypeUnknown: "unknown",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeStr:     "str",
	TypeBool:    "bool",
	TypeArr:     "arr",
	TypeObj:     "obj",
	TypeMap:     "map",
	TypeSet:     "set",
	TypeAny:     "any",
	TypeVoid:    "void",
	TypePromise: "promise",
	TypeFunc:    "func",
	TypeUINode:  "ui",
}

// Type is a resolved VL type. Types are values and compared structurally.
type Type struct {
	Kind TypeKind
	Elem TypeKind // element type for arr/map/set, TypeUnknown when untracked
}

func (t Type) String() string {
	if name, ok := typeKindNames[t.Kind]; ok {
		return name
	}
	return "unknown"
}

// Numeric reports whether t is int or float.
func (t Type) Numeric() bool {
	return t.Kind == TypeInt || t.Kind == TypeFloat
}

// Collection reports whether t is arr, map, or set.
func (t Type) Collection() bool {
	return t.Kind == TypeArr || t.Kind == TypeMap || t.Kind == TypeSet
}

var typeByName = map[string]TypeKind{
	"int":     TypeInt,
	"float":   TypeFloat,
	"str":     TypeStr,
	"bool":    TypeBool,
	"arr":     TypeArr,
	"obj":     TypeObj,
	"map":     TypeMap,
	"set":     TypeSet,
	"any":     TypeAny,
	"void":    TypeVoid,
	"promise": TypePromise,
	"func":    TypeFunc,
}

// resolveType converts a source type annotation into a Type. Unknown names
// resolve to any.
func resolveType(ref *TypeRef) Type {
	if ref == nil {
		return Type{Kind: TypeAny}
	}
	if kind, ok := typeByName[ref.Name]; ok {
		return Type{Kind: kind}
	}
	return Type{Kind: TypeAny}
}

// assignable reports whether a value of type source can be assigned to a slot
// of type target. int promotes to float; any is compatible both ways.
func assignable(target, source Type) bool {
	if target.Kind == TypeAny || source.Kind == TypeAny {
		return true
	}
	if target.Kind == source.Kind {
		return true
	}
	if target.Kind == TypeFloat && source.Kind == TypeInt {
		return true
	}
	return false
}
