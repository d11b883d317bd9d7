package scan

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/pedromsantos/dddlint/internal/descriptor"
	"github.com/pedromsantos/dddlint/internal/logging"
)

// GoParser extracts type descriptors from Go source using tree-sitter.
type GoParser struct {
	parser *sitter.Parser
}

// NewGoParser creates a Go parser.
func NewGoParser() *GoParser {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	return &GoParser{parser: parser}
}

// Language returns "go".
func (p *GoParser) Language() string { return "go" }

// SupportedExtensions returns [".go"].
func (p *GoParser) SupportedExtensions() []string { return []string{".go"} }

// Parse extracts the types declared in one Go file, in source order.
func (p *GoParser) Parse(path string, content []byte) ([]descriptor.TypeDescriptor, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	getText := func(n *sitter.Node) string {
		return n.Content(content)
	}

	root := tree.RootNode()

	byName := make(map[string]*descriptor.TypeDescriptor)
	var order []string

	// First pass: type declarations.
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() != "type_declaration" {
			continue
		}
		for j := 0; j < int(n.NamedChildCount()); j++ {
			spec := n.NamedChild(j)
			if spec.Type() != "type_spec" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			typeNode := spec.ChildByFieldName("type")
			if nameNode == nil || typeNode == nil {
				continue
			}
			t := &descriptor.TypeDescriptor{
				Name:     getText(nameNode),
				Line:     int(nameNode.StartPoint().Row) + 1,
				Equality: descriptor.EqualityDefault,
			}
			switch typeNode.Type() {
			case "struct_type":
				p.readStructFields(typeNode, content, t)
			case "interface_type":
				t.Abstract = true
				p.readInterfaceMethods(typeNode, content, t)
			default:
				// Named basic types (type Email string) have no fields of
				// their own; model the underlying value as one immutable
				// field so immutability rules see them.
				t.Fields = append(t.Fields, descriptor.Field{
					Name: "value", Type: getText(typeNode),
				})
			}
			byName[t.Name] = t
			order = append(order, t.Name)
		}
	}

	// Second pass: methods and constructor functions.
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "method_declaration":
			p.attachMethod(n, content, byName)
		case "function_declaration":
			p.attachConstructor(n, content, byName, order)
		}
	}

	for _, name := range order {
		finishGoType(byName[name], content)
	}

	out := make([]descriptor.TypeDescriptor, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	logging.ScanDebug("GoParser: %s yielded %d types", path, len(out))
	return out, nil
}

func (p *GoParser) readStructFields(structNode *sitter.Node, content []byte, t *descriptor.TypeDescriptor) {
	block := structNode.ChildByFieldName("fields")
	if block == nil {
		return
	}
	for i := 0; i < int(block.NamedChildCount()); i++ {
		decl := block.NamedChild(i)
		if decl.Type() != "field_declaration" {
			continue
		}
		var names []string
		var fieldType string
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			child := decl.NamedChild(j)
			if child.Type() == "field_identifier" {
				names = append(names, child.Content(content))
			} else if child.Type() != "raw_string_literal" && child.Type() != "interpreted_string_literal" {
				fieldType = child.Content(content)
			}
		}
		if len(names) == 0 {
			// Embedded type: a declared capability.
			t.Implements = append(t.Implements, baseTypeName(fieldType))
			continue
		}
		for _, name := range names {
			t.Fields = append(t.Fields, descriptor.Field{
				Name: name,
				Type: fieldType,
				// Exported fields are assignable by any package; whether
				// unexported ones are effectively mutable depends on the
				// setters found in the second pass.
				Mutable:  isExported(name),
				Identity: isIdentityField(t.Name, name, fieldType),
			})
		}
	}
}

func (p *GoParser) readInterfaceMethods(ifaceNode *sitter.Node, content []byte, t *descriptor.TypeDescriptor) {
	for i := 0; i < int(ifaceNode.NamedChildCount()); i++ {
		spec := ifaceNode.NamedChild(i)
		switch spec.Type() {
		case "method_spec":
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			t.Methods = append(t.Methods, descriptor.Method{Name: nameNode.Content(content)})
		case "type_identifier", "qualified_type":
			t.Implements = append(t.Implements, baseTypeName(spec.Content(content)))
		}
	}
}

// attachMethod records one method on its receiver's descriptor.
func (p *GoParser) attachMethod(n *sitter.Node, content []byte, byName map[string]*descriptor.TypeDescriptor) {
	nameNode := n.ChildByFieldName("name")
	receiverNode := n.ChildByFieldName("receiver")
	if nameNode == nil || receiverNode == nil {
		return
	}
	receiver := baseTypeName(receiverNode.Content(content))
	t, ok := byName[receiver]
	if !ok {
		return
	}

	name := nameNode.Content(content)
	body := n.ChildByFieldName("body")
	m := descriptor.Method{Name: name}
	if body != nil {
		bodyText := body.Content(content)
		m.Accessor = isAccessorBody(body, bodyText)
		m.Validates = validatesBody(bodyText)
		if name == "Equals" || name == "Equal" {
			t.Equality = equalityBasis(t, bodyText)
		}
	}
	t.Methods = append(t.Methods, m)
}

// equalityBasis inspects an equality method body and reports which fields it
// compares: the identity field only, all attributes, or a mix.
func equalityBasis(t *descriptor.TypeDescriptor, bodyText string) descriptor.EqualityBasis {
	usesIdentity := false
	usesOther := false
	for _, f := range t.Fields {
		if !containsWord(bodyText, f.Name) {
			continue
		}
		if f.Identity {
			usesIdentity = true
		} else {
			usesOther = true
		}
	}
	switch {
	case usesIdentity && usesOther:
		return descriptor.EqualityMixed
	case usesIdentity:
		return descriptor.EqualityIdentity
	case usesOther:
		return descriptor.EqualityAttributes
	default:
		return descriptor.EqualityDefault
	}
}

// attachConstructor records New<Type>-style factory functions as constructor
// methods of the type they build. An exact name match wins; otherwise the
// first declared type mentioned in the results takes the constructor, so
// repeated parses of the same file attach it to the same type.
func (p *GoParser) attachConstructor(n *sitter.Node, content []byte, byName map[string]*descriptor.TypeDescriptor, order []string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)
	if !strings.HasPrefix(name, "New") && !strings.HasPrefix(name, "Create") {
		return
	}

	m := descriptor.Method{Name: name, Constructor: true}
	if body := n.ChildByFieldName("body"); body != nil {
		m.Validates = validatesBody(body.Content(content))
	}

	trimmed := strings.TrimPrefix(strings.TrimPrefix(name, "New"), "Create")
	if t, ok := byName[trimmed]; ok {
		t.Methods = append(t.Methods, m)
		return
	}

	resultNode := n.ChildByFieldName("result")
	if resultNode == nil {
		return
	}
	resultText := resultNode.Content(content)
	for _, typeName := range order {
		if containsWord(resultText, typeName) {
			byName[typeName].Methods = append(byName[typeName].Methods, m)
			return
		}
	}
}

// finishGoType applies the facts that need the full method set: a setter
// makes its field mutable even when the field itself is unexported.
func finishGoType(t *descriptor.TypeDescriptor, _ []byte) {
	for _, m := range t.Methods {
		if !strings.HasPrefix(m.Name, "Set") || len(m.Name) <= 3 {
			continue
		}
		target := strings.ToLower(m.Name[3:])
		for i := range t.Fields {
			if strings.ToLower(t.Fields[i].Name) == target {
				t.Fields[i].Mutable = true
			}
		}
	}
}

func isExported(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

// isIdentityField recognizes persistent identifiers by name and type shape.
func isIdentityField(typeName, fieldName, fieldType string) bool {
	lower := strings.ToLower(fieldName)
	if lower == "id" || lower == "sid" || lower == "uuid" || lower == strings.ToLower(typeName)+"id" {
		return true
	}
	base := baseTypeName(fieldType)
	return strings.HasSuffix(base, "ID") || strings.HasSuffix(base, "Id") || base == "Sid" || base == "UUID"
}

// baseTypeName strips receivers, pointers and package qualifiers:
// "(u *users.User)" -> "User".
func baseTypeName(s string) string {
	s = strings.Trim(s, "()")
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimPrefix(s, "*")
	s = strings.TrimPrefix(s, "[]")
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// isAccessorBody reports whether a method body has getter/setter shape: a
// single statement that only returns or assigns a field.
func isAccessorBody(body *sitter.Node, bodyText string) bool {
	if body.NamedChildCount() != 1 {
		return false
	}
	stmt := strings.TrimSpace(strings.Trim(strings.TrimSpace(bodyText), "{}"))
	if strings.HasPrefix(stmt, "return ") {
		expr := strings.TrimPrefix(stmt, "return ")
		// A bare field read; calls and computations are behavior.
		return !strings.ContainsAny(expr, "(+-*/")
	}
	if strings.Contains(stmt, "=") && !strings.Contains(stmt, "==") {
		return !strings.Contains(stmt, "(")
	}
	return false
}

// validatesBody reports whether a body performs a guard that can reject
// input.
func validatesBody(bodyText string) bool {
	if !strings.Contains(bodyText, "if ") {
		return false
	}
	return strings.Contains(bodyText, "errors.New(") ||
		strings.Contains(bodyText, "Errorf(") ||
		strings.Contains(bodyText, "panic(") ||
		strings.Contains(bodyText, "return nil, ") ||
		regexp.MustCompile(`return .*err`).MatchString(bodyText)
}

func containsWord(s, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(s)
}
