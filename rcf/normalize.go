package rcf

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"xdao.co/rcf/schema"
)

const decimalLogicalType = "decimal"

// registry is the set of named-type fullnames already emitted during one
// top-level normalization. A fresh registry is allocated for every call.
type registry struct {
	seen map[string]struct{}
}

func newRegistry() *registry {
	return &registry{seen: make(map[string]struct{})}
}

func (r *registry) has(fullname string) bool {
	_, ok := r.seen[fullname]
	return ok
}

func (r *registry) add(fullname string) {
	r.seen[fullname] = struct{}{}
}

type normalizer struct {
	opts Options
}

func (n normalizer) normalize(s schema.Schema, seen *registry) (Tree, error) {
	switch t := s.(type) {
	case nil:
		return nil, nilNode("schema")
	case *schema.Primitive:
		if t == nil {
			return nil, nilNode("primitive")
		}
		if !schema.IsPrimitive(t.Kind) {
			return nil, newError(KindPrecondition, "RCF-PRE-004", fmt.Sprintf("unknown primitive kind %q", t.Kind))
		}
		return String(t.Kind), nil
	case *schema.Bytes:
		if t == nil {
			return nil, nilNode("bytes")
		}
		if t.Decimal == nil {
			return String(schema.KindBytes), nil
		}
		obj := Object{{Key: "type", Value: String(schema.KindBytes)}}
		addDecimal(&obj, t.Decimal, true)
		return obj, nil
	case *schema.Record:
		if t == nil {
			return nil, nilNode("record")
		}
		return n.normalizeRecord(t, seen)
	case *schema.Enum:
		if t == nil {
			return nil, nilNode("enum")
		}
		return n.normalizeEnum(t, seen)
	case *schema.Fixed:
		if t == nil {
			return nil, nilNode("fixed")
		}
		return n.normalizeFixed(t, seen)
	case *schema.Ref:
		if t == nil {
			return nil, nilNode("reference")
		}
		if t.Fullname == "" {
			return nil, newError(KindPrecondition, "RCF-PRE-001", "reference without a fullname")
		}
		if !seen.has(t.Fullname) {
			return nil, newError(KindPrecondition, "RCF-PRE-002", fmt.Sprintf("reference to undefined type %q", t.Fullname))
		}
		return String(t.Fullname), nil
	case *schema.Array:
		if t == nil {
			return nil, nilNode("array")
		}
		items, err := n.normalize(t.Items, seen)
		if err != nil {
			return nil, err
		}
		return Object{{Key: "type", Value: String("array")}, {Key: "items", Value: items}}, nil
	case *schema.Map:
		if t == nil {
			return nil, nilNode("map")
		}
		values, err := n.normalize(t.Values, seen)
		if err != nil {
			return nil, err
		}
		return Object{{Key: "type", Value: String("map")}, {Key: "values", Value: values}}, nil
	case *schema.Union:
		if t == nil {
			return nil, nilNode("union")
		}
		branches := make(Array, 0, len(t.Branches))
		for _, b := range t.Branches {
			v, err := n.normalize(b, seen)
			if err != nil {
				return nil, err
			}
			branches = append(branches, v)
		}
		return branches, nil
	default:
		return nil, newError(KindPrecondition, "RCF-PRE-005", fmt.Sprintf("unhandled schema variant %T", s))
	}
}

// enter registers a named type. It reports false when the fullname was already
// emitted, in which case the caller emits the bare fullname.
func enter(name schema.Name, seen *registry) (string, bool, error) {
	if name.Name == "" {
		return "", false, newError(KindPrecondition, "RCF-PRE-001", "named type without a fullname")
	}
	full := name.Fullname()
	if seen.has(full) {
		return full, false, nil
	}
	seen.add(full)
	return full, true, nil
}

func (n normalizer) normalizeRecord(r *schema.Record, seen *registry) (Tree, error) {
	full, first, err := enter(r.Name, seen)
	if err != nil {
		return nil, err
	}
	if !first {
		return String(full), nil
	}
	obj := Object{{Key: "name", Value: String(full)}, {Key: "type", Value: String("record")}}
	fields := make(Array, 0, len(r.Fields))
	for _, f := range r.Fields {
		v, err := n.normalizeField(f, seen)
		if err != nil {
			return nil, err
		}
		fields = append(fields, v)
	}
	obj.add("fields", fields)
	addAliases(&obj, qualifiedAliases(r.Name, r.Aliases))
	return obj, nil
}

func (n normalizer) normalizeEnum(e *schema.Enum, seen *registry) (Tree, error) {
	full, first, err := enter(e.Name, seen)
	if err != nil {
		return nil, err
	}
	if !first {
		return String(full), nil
	}
	obj := Object{{Key: "name", Value: String(full)}, {Key: "type", Value: String("enum")}}
	obj.add("symbols", stringArray(e.Symbols))
	if e.Default != nil {
		obj.add("default", String(*e.Default))
	}
	addAliases(&obj, qualifiedAliases(e.Name, e.Aliases))
	return obj, nil
}

func (n normalizer) normalizeFixed(f *schema.Fixed, seen *registry) (Tree, error) {
	full, first, err := enter(f.Name, seen)
	if err != nil {
		return nil, err
	}
	if !first {
		return String(full), nil
	}
	obj := Object{{Key: "name", Value: String(full)}, {Key: "type", Value: String("fixed")}}
	obj.add("size", Int(f.Size))
	addAliases(&obj, qualifiedAliases(f.Name, f.Aliases))
	if f.Decimal != nil {
		addDecimal(&obj, f.Decimal, n.opts.FixedDecimalParameters)
	}
	return obj, nil
}

func (n normalizer) normalizeField(f *schema.Field, seen *registry) (Tree, error) {
	if f == nil {
		return nil, nilNode("field")
	}
	typ, err := n.normalize(f.Type, seen)
	if err != nil {
		return nil, err
	}
	obj := Object{{Key: "name", Value: String(f.Name)}, {Key: "type", Value: typ}}
	if f.Default.Present() {
		v, err := defaultTree(f.Default.Value())
		if err != nil {
			return nil, err
		}
		obj.add("default", v)
	}
	addAliases(&obj, sortedSet(f.Aliases))
	return obj, nil
}

// addDecimal appends the decimal logical type. Precision is emitted only when
// present and non-zero; scale whenever present.
func addDecimal(obj *Object, d *schema.Decimal, params bool) {
	obj.add("logicalType", String(decimalLogicalType))
	if !params {
		return
	}
	if d.Precision != nil && *d.Precision != 0 {
		obj.add("precision", Int(*d.Precision))
	}
	if d.Scale != nil {
		obj.add("scale", Int(*d.Scale))
	}
}

func addAliases(obj *Object, aliases []string) {
	if len(aliases) == 0 {
		return
	}
	obj.add("aliases", stringArray(aliases))
}

func qualifiedAliases(name schema.Name, aliases []string) []string {
	if len(aliases) == 0 {
		return nil
	}
	q := make([]string, len(aliases))
	for i, a := range aliases {
		q[i] = name.QualifyAlias(a)
	}
	return sortedSet(q)
}

// sortedSet returns a sorted copy of ss with duplicates removed.
func sortedSet(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	out := append([]string(nil), ss...)
	sort.Strings(out)
	j := 0
	for i := range out {
		if i > 0 && out[i] == out[j-1] {
			continue
		}
		out[j] = out[i]
		j++
	}
	return out[:j]
}

// defaultTree converts a field default value to a tree. Map keys are sorted so
// that object-valued defaults are order independent.
func defaultTree(v any) (Tree, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Tree:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, wrapError(KindPrecondition, "RCF-PRE-006", fmt.Sprintf("default number %q is not representable", t), err)
		}
		return floatTree(f)
	case int:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return Float(t), nil
		}
		return Int(t), nil
	case float32:
		return floatTree(float64(t))
	case float64:
		return floatTree(t)
	case []string:
		return stringArray(t), nil
	case []any:
		out := make(Array, 0, len(t))
		for _, item := range t {
			iv, err := defaultTree(item)
			if err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			mv, err := defaultTree(t[k])
			if err != nil {
				return nil, err
			}
			obj.add(k, mv)
		}
		return obj, nil
	default:
		return nil, newError(KindPrecondition, "RCF-PRE-006", fmt.Sprintf("unsupported default value type %T", v))
	}
}

func floatTree(f float64) (Tree, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, newError(KindPrecondition, "RCF-PRE-006", "default number is not finite")
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f)), nil
	}
	return Float(f), nil
}

// validText fails with RCF-PRE-007 if a string or object key anywhere in t is
// not valid UTF-8. Such bytes have no JSON spelling of their own.
func validText(t Tree) error {
	switch v := t.(type) {
	case String:
		if !utf8.ValidString(string(v)) {
			return newError(KindPrecondition, "RCF-PRE-007", fmt.Sprintf("invalid UTF-8 in %q", string(v)))
		}
	case Array:
		for _, e := range v {
			if err := validText(e); err != nil {
				return err
			}
		}
	case Object:
		for _, m := range v {
			if err := validText(String(m.Key)); err != nil {
				return err
			}
			if err := validText(m.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func nilNode(what string) error {
	return newError(KindPrecondition, "RCF-PRE-003", "nil "+what+" node")
}
