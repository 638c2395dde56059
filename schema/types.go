// Package schema defines the in-memory schema model consumed by the RCF canonicalizer.
//
// A Schema is one of a closed set of variants (primitive, bytes, record, enum,
// fixed, array, map, union, or a by-name reference). Nodes are built once,
// either by hand or by Parse, and are treated as read-only afterwards.
package schema

import "strings"

// Schema is a node in a schema graph.
//
// The interface is sealed: only the variant types in this package implement it.
type Schema interface {
	schemaNode()
}

// Kind enumerates the primitive scalar kinds.
type Kind string

const (
	KindNull    Kind = "null"
	KindBoolean Kind = "boolean"
	KindInt     Kind = "int"
	KindLong    Kind = "long"
	KindFloat   Kind = "float"
	KindDouble  Kind = "double"
	KindString  Kind = "string"
	KindBytes   Kind = "bytes"
)

var primitiveKinds = map[Kind]bool{
	KindNull: true, KindBoolean: true, KindInt: true, KindLong: true,
	KindFloat: true, KindDouble: true, KindString: true, KindBytes: true,
}

// IsPrimitive reports whether k names a primitive kind.
func IsPrimitive(k Kind) bool { return primitiveKinds[k] }

// Name is the (name, namespace) pair identifying a named type.
type Name struct {
	Name      string
	Namespace string
}

// Fullname returns "namespace.name", or the bare name when there is no namespace.
func (n Name) Fullname() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

// QualifyAlias returns alias qualified with the namespace of n when the alias
// has no dot of its own.
func (n Name) QualifyAlias(alias string) string {
	if strings.Contains(alias, ".") || n.Namespace == "" {
		return alias
	}
	return n.Namespace + "." + alias
}

// Decimal carries the parameters of the decimal logical type.
// Either parameter may be absent.
type Decimal struct {
	Precision *int
	Scale     *int
}

type Primitive struct {
	Kind Kind
}

// Bytes is the bytes type, optionally annotated with the decimal logical type.
type Bytes struct {
	Decimal *Decimal
}

type Record struct {
	Name    Name
	Fields  []*Field
	Aliases []string
}

type Enum struct {
	Name    Name
	Symbols []string
	Default *string
	Aliases []string
}

type Fixed struct {
	Name    Name
	Size    int
	Aliases []string
	Decimal *Decimal
}

type Array struct {
	Items Schema
}

type Map struct {
	Values Schema
}

// Union holds its branches in declaration order; the order is significant.
type Union struct {
	Branches []Schema
}

// Ref refers to a named type by fullname. The referenced type must have been
// defined earlier in the same graph.
type Ref struct {
	Fullname string
}

// Field is a record field.
type Field struct {
	Name    string
	Type    Schema
	Default Default
	Aliases []string
}

func (*Primitive) schemaNode() {}
func (*Bytes) schemaNode()     {}
func (*Record) schemaNode()    {}
func (*Enum) schemaNode()      {}
func (*Fixed) schemaNode()     {}
func (*Array) schemaNode()     {}
func (*Map) schemaNode()       {}
func (*Union) schemaNode()     {}
func (*Ref) schemaNode()       {}

// Named is implemented by the variants that carry a fullname.
type Named interface {
	Schema
	TypeName() Name
}

func (r *Record) TypeName() Name { return r.Name }
func (e *Enum) TypeName() Name   { return e.Name }
func (f *Fixed) TypeName() Name  { return f.Name }

// IntPtr returns a pointer to v, for building Decimal values.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
