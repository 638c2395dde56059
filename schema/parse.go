package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse decodes an Avro-style JSON schema document into the schema model.
//
// Named types are registered under their fullname as soon as their header is
// read; every later reference to that fullname (including self-references)
// resolves to the same node pointer. Attributes that do not affect the model
// (doc, order, unknown properties, non-decimal logical types) are dropped.
//
// Parse checks only what it needs to build a well-formed graph. It does not
// validate legality rules such as duplicate field names or default/type agreement.
func Parse(data []byte) (Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{RuleID: "SCHEMA-PARSE-001", Message: "invalid JSON", Cause: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, parseErr("SCHEMA-PARSE-001", "", "trailing data after schema")
	}
	p := &parser{names: make(map[string]Named)}
	return p.parse(v, "", "$")
}

type parser struct {
	names map[string]Named
}

func (p *parser) parse(v any, ns, path string) (Schema, error) {
	switch t := v.(type) {
	case string:
		return p.parseTypeName(t, ns, path)
	case []any:
		return p.parseUnion(t, ns, path)
	case map[string]any:
		return p.parseObject(t, ns, path)
	default:
		return nil, parseErr("SCHEMA-PARSE-002", path, fmt.Sprintf("unexpected JSON value %T for a schema", v))
	}
}

func (p *parser) parseTypeName(name, ns, path string) (Schema, error) {
	if IsPrimitive(Kind(name)) {
		return &Primitive{Kind: Kind(name)}, nil
	}
	if n, ok := p.lookup(name, ns); ok {
		return n, nil
	}
	return nil, parseErr("SCHEMA-PARSE-004", path, fmt.Sprintf("unknown type %q", name))
}

func (p *parser) lookup(name, ns string) (Named, bool) {
	if !strings.Contains(name, ".") && ns != "" {
		if n, ok := p.names[ns+"."+name]; ok {
			return n, true
		}
	}
	n, ok := p.names[name]
	return n, ok
}

func (p *parser) parseUnion(branches []any, ns, path string) (Schema, error) {
	u := &Union{Branches: make([]Schema, 0, len(branches))}
	for i, b := range branches {
		bpath := fmt.Sprintf("%s[%d]", path, i)
		if _, nested := b.([]any); nested {
			return nil, parseErr("SCHEMA-PARSE-006", bpath, "unions may not immediately contain other unions")
		}
		s, err := p.parse(b, ns, bpath)
		if err != nil {
			return nil, err
		}
		u.Branches = append(u.Branches, s)
	}
	return u, nil
}

func (p *parser) parseObject(obj map[string]any, ns, path string) (Schema, error) {
	raw, ok := obj["type"]
	if !ok {
		return nil, parseErr("SCHEMA-PARSE-002", path, "missing \"type\"")
	}
	typ, ok := raw.(string)
	if !ok {
		return p.parse(raw, ns, path+".type")
	}

	switch typ {
	case "record", "error":
		return p.parseRecord(obj, ns, path)
	case "enum":
		return p.parseEnum(obj, ns, path)
	case "fixed":
		return p.parseFixed(obj, ns, path)
	case "array":
		items, ok := obj["items"]
		if !ok {
			return nil, parseErr("SCHEMA-PARSE-007", path, "array is missing \"items\"")
		}
		s, err := p.parse(items, ns, path+".items")
		if err != nil {
			return nil, err
		}
		return &Array{Items: s}, nil
	case "map":
		values, ok := obj["values"]
		if !ok {
			return nil, parseErr("SCHEMA-PARSE-007", path, "map is missing \"values\"")
		}
		s, err := p.parse(values, ns, path+".values")
		if err != nil {
			return nil, err
		}
		return &Map{Values: s}, nil
	case string(KindBytes):
		if d := decimalOf(obj); d != nil {
			return &Bytes{Decimal: d}, nil
		}
		return &Primitive{Kind: KindBytes}, nil
	}
	if IsPrimitive(Kind(typ)) {
		return &Primitive{Kind: Kind(typ)}, nil
	}
	return p.parseTypeName(typ, ns, path+".type")
}

// header reads name/namespace/aliases and registers the type under its fullname.
func (p *parser) header(obj map[string]any, ns, path string, n Named) (Name, []string, error) {
	rawName, ok := obj["name"].(string)
	if !ok || rawName == "" {
		return Name{}, nil, parseErr("SCHEMA-PARSE-003", path, "named type requires a non-empty \"name\"")
	}
	name := Name{Name: rawName, Namespace: ns}
	if i := strings.LastIndex(rawName, "."); i >= 0 {
		name = Name{Name: rawName[i+1:], Namespace: rawName[:i]}
	} else if v, present := obj["namespace"]; present {
		s, ok := v.(string)
		if !ok {
			return Name{}, nil, parseErr("SCHEMA-PARSE-007", path+".namespace", "namespace must be a string")
		}
		name.Namespace = s
	}
	if name.Name == "" {
		return Name{}, nil, parseErr("SCHEMA-PARSE-003", path, fmt.Sprintf("invalid name %q", rawName))
	}

	aliases, err := stringList(obj, "aliases", path)
	if err != nil {
		return Name{}, nil, err
	}

	full := name.Fullname()
	if _, dup := p.names[full]; dup {
		return Name{}, nil, parseErr("SCHEMA-PARSE-005", path, fmt.Sprintf("type %q is already defined", full))
	}
	p.names[full] = n
	return name, aliases, nil
}

func (p *parser) parseRecord(obj map[string]any, ns, path string) (Schema, error) {
	r := &Record{}
	name, aliases, err := p.header(obj, ns, path, r)
	if err != nil {
		return nil, err
	}
	r.Name = name
	r.Aliases = aliases

	rawFields, ok := obj["fields"].([]any)
	if !ok {
		return nil, parseErr("SCHEMA-PARSE-007", path, "record requires a \"fields\" array")
	}
	r.Fields = make([]*Field, 0, len(rawFields))
	for i, rf := range rawFields {
		fpath := fmt.Sprintf("%s.fields[%d]", path, i)
		fobj, ok := rf.(map[string]any)
		if !ok {
			return nil, parseErr("SCHEMA-PARSE-007", fpath, "field must be an object")
		}
		f, err := p.parseField(fobj, name.Namespace, fpath)
		if err != nil {
			return nil, err
		}
		r.Fields = append(r.Fields, f)
	}
	return r, nil
}

func (p *parser) parseField(obj map[string]any, ns, path string) (*Field, error) {
	fname, ok := obj["name"].(string)
	if !ok || fname == "" {
		return nil, parseErr("SCHEMA-PARSE-003", path, "field requires a non-empty \"name\"")
	}
	rawType, ok := obj["type"]
	if !ok {
		return nil, parseErr("SCHEMA-PARSE-002", path, "field is missing \"type\"")
	}
	typ, err := p.parse(rawType, ns, path+".type")
	if err != nil {
		return nil, err
	}
	aliases, err := stringList(obj, "aliases", path)
	if err != nil {
		return nil, err
	}
	f := &Field{Name: fname, Type: typ, Aliases: aliases}
	if dv, present := obj["default"]; present {
		f.Default = ValueDefault(dv)
	}
	return f, nil
}

func (p *parser) parseEnum(obj map[string]any, ns, path string) (Schema, error) {
	e := &Enum{}
	name, aliases, err := p.header(obj, ns, path, e)
	if err != nil {
		return nil, err
	}
	e.Name = name
	e.Aliases = aliases

	if _, ok := obj["symbols"].([]any); !ok {
		return nil, parseErr("SCHEMA-PARSE-007", path, "enum requires a \"symbols\" array")
	}
	symbols, err := stringList(obj, "symbols", path)
	if err != nil {
		return nil, err
	}
	e.Symbols = symbols
	if v, present := obj["default"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, parseErr("SCHEMA-PARSE-007", path+".default", "enum default must be a string")
		}
		e.Default = &s
	}
	return e, nil
}

func (p *parser) parseFixed(obj map[string]any, ns, path string) (Schema, error) {
	f := &Fixed{}
	name, aliases, err := p.header(obj, ns, path, f)
	if err != nil {
		return nil, err
	}
	f.Name = name
	f.Aliases = aliases

	size, ok := intOf(obj["size"])
	if !ok || size < 0 {
		return nil, parseErr("SCHEMA-PARSE-007", path, "fixed requires a non-negative integer \"size\"")
	}
	f.Size = size
	f.Decimal = decimalOf(obj)
	return f, nil
}

// decimalOf returns the decimal parameters when obj carries logicalType
// "decimal". Non-numeric precision or scale values are dropped.
func decimalOf(obj map[string]any) *Decimal {
	if lt, _ := obj["logicalType"].(string); lt != "decimal" {
		return nil
	}
	d := &Decimal{}
	if v, ok := intOf(obj["precision"]); ok {
		d.Precision = &v
	}
	if v, ok := intOf(obj["scale"]); ok {
		d.Scale = &v
	}
	return d
}

func intOf(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return i, true
}

func stringList(obj map[string]any, key, path string) ([]string, error) {
	raw, present := obj[key]
	if !present || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, parseErr("SCHEMA-PARSE-007", path+"."+key, key+" must be an array of strings")
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, parseErr("SCHEMA-PARSE-007", fmt.Sprintf("%s.%s[%d]", path, key, i), key+" must be an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}
