package scan

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/pedromsantos/dddlint/internal/descriptor"
	"github.com/pedromsantos/dddlint/internal/logging"
)

// PythonParser extracts type descriptors from Python source using
// tree-sitter. The structural mapping follows dataclass-style DDD code:
// @dataclass(frozen=True) marks an immutable type, __post_init__ raising on
// bad input marks constructor validation, ABC bases mark abstract ports.
type PythonParser struct {
	parser *sitter.Parser
}

// NewPythonParser creates a Python parser.
func NewPythonParser() *PythonParser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: parser}
}

// Language returns "py".
func (p *PythonParser) Language() string { return "py" }

// SupportedExtensions returns [".py", ".pyw"].
func (p *PythonParser) SupportedExtensions() []string { return []string{".py", ".pyw"} }

// Parse extracts the classes declared in one Python file, in source order.
func (p *PythonParser) Parse(path string, content []byte) ([]descriptor.TypeDescriptor, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	var out []descriptor.TypeDescriptor
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "class_definition":
			if t := p.readClass(n, nil, content); t != nil {
				out = append(out, *t)
			}
		case "decorated_definition":
			def := n.ChildByFieldName("definition")
			if def != nil && def.Type() == "class_definition" {
				if t := p.readClass(def, n, content); t != nil {
					out = append(out, *t)
				}
			}
		}
	}
	logging.ScanDebug("PythonParser: %s yielded %d types", path, len(out))
	return out, nil
}

var (
	pyFieldRe     = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*:\s*([^=]+?)\s*(?:=.*)?$`)
	pySelfAssign  = regexp.MustCompile(`self\.([a-z_][A-Za-z0-9_]*)\s*=`)
	pySelfRead    = regexp.MustCompile(`self\.([a-z_][A-Za-z0-9_]*)`)
	pyParamAnnot  = regexp.MustCompile(`[a-z_][A-Za-z0-9_]*\s*:\s*"?([A-Z][A-Za-z0-9_]*)"?`)
)

func (p *PythonParser) readClass(classNode, decorated *sitter.Node, content []byte) *descriptor.TypeDescriptor {
	nameNode := classNode.ChildByFieldName("name")
	body := classNode.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}

	t := &descriptor.TypeDescriptor{
		Name:     nameNode.Content(content),
		Line:     int(nameNode.StartPoint().Row) + 1,
		Equality: descriptor.EqualityDefault,
	}

	frozen := false
	if decorated != nil {
		for i := 0; i < int(decorated.NamedChildCount()); i++ {
			child := decorated.NamedChild(i)
			if child.Type() != "decorator" {
				continue
			}
			text := child.Content(content)
			if strings.Contains(text, "dataclass") && strings.Contains(text, "frozen=True") {
				frozen = true
			}
		}
	}

	if bases := classNode.ChildByFieldName("superclasses"); bases != nil {
		for i := 0; i < int(bases.NamedChildCount()); i++ {
			base := strings.TrimSpace(bases.NamedChild(i).Content(content))
			if base == "" {
				continue
			}
			t.Implements = append(t.Implements, base)
			if base == "ABC" || base == "Protocol" || strings.Contains(base, "ABCMeta") {
				t.Abstract = true
			}
		}
	}

	p.readBody(body, content, t, frozen)

	// Frozen dataclasses without a custom __eq__ compare all attributes.
	if frozen && t.Equality == descriptor.EqualityDefault {
		t.Equality = descriptor.EqualityAttributes
	}
	return t
}

// readBody walks a class body collecting fields and methods.
func (p *PythonParser) readBody(body *sitter.Node, content []byte, t *descriptor.TypeDescriptor, frozen bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		switch stmt.Type() {
		case "expression_statement":
			p.readFieldAnnotation(stmt, content, t, frozen)
		case "function_definition":
			p.readMethod(stmt, nil, content, t)
		case "decorated_definition":
			def := stmt.ChildByFieldName("definition")
			if def != nil && def.Type() == "function_definition" {
				p.readMethod(def, stmt, content, t)
			}
		}
	}
}

// readFieldAnnotation parses `name: Type` class-body annotations. ClassVar
// declarations are class constants, not instance state.
func (p *PythonParser) readFieldAnnotation(stmt *sitter.Node, content []byte, t *descriptor.TypeDescriptor, frozen bool) {
	line := strings.TrimSpace(stmt.Content(content))
	m := pyFieldRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	name, fieldType := m[1], strings.TrimSpace(m[2])
	if strings.Contains(fieldType, "ClassVar") {
		return
	}
	t.Fields = append(t.Fields, descriptor.Field{
		Name:     name,
		Type:     fieldType,
		Mutable:  !frozen,
		Identity: isIdentityField(t.Name, name, fieldType),
	})
}

// dunders that are neither behavior nor accessors.
var ignoredDunders = map[string]bool{
	"__str__": true, "__repr__": true, "__hash__": true, "__len__": true,
}

func (p *PythonParser) readMethod(fn, decorated *sitter.Node, content []byte, t *descriptor.TypeDescriptor) {
	nameNode := fn.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)
	if ignoredDunders[name] {
		return
	}

	var bodyText string
	if body := fn.ChildByFieldName("body"); body != nil {
		bodyText = body.Content(content)
	}

	abstract := false
	property := false
	classmethod := false
	if decorated != nil {
		text := decorated.Content(content)
		abstract = strings.Contains(text, "@abstractmethod")
		property = strings.Contains(text, "@property")
		classmethod = strings.Contains(text, "@classmethod") || strings.Contains(text, "@staticmethod")
	}
	if abstract {
		t.Abstract = true
	}

	switch name {
	case "__init__", "__post_init__":
		m := descriptor.Method{Name: name, Constructor: true, Validates: strings.Contains(bodyText, "raise ")}
		// Plain classes declare their state in __init__.
		if name == "__init__" && len(t.Fields) == 0 {
			for _, match := range pySelfAssign.FindAllStringSubmatch(bodyText, -1) {
				t.Fields = append(t.Fields, descriptor.Field{
					Name:     match[1],
					Mutable:  true,
					Identity: isIdentityField(t.Name, match[1], ""),
				})
			}
		}
		t.Methods = append(t.Methods, m)
		return
	case "__eq__":
		t.Equality = pyEqualityBasis(t, bodyText)
		return
	}

	if classmethod && (strings.HasPrefix(name, "create") || strings.HasPrefix(name, "generate") || strings.HasPrefix(name, "from_")) {
		t.Methods = append(t.Methods, descriptor.Method{
			Name: name, Constructor: true, Validates: strings.Contains(bodyText, "raise "),
		})
		return
	}

	m := descriptor.Method{Name: name}
	m.Validates = strings.Contains(bodyText, "raise ")
	m.Accessor = property && !m.Validates || pyAccessorBody(fn, bodyText)

	// Repository ports reveal their aggregate through write signatures like
	// save(self, location: Location). Lookup methods lead with identifier
	// parameters and would resolve the target to an ID value object, so they
	// are left to the Repository-suffix fallback instead.
	if repoWriteMethods[name] && strings.HasSuffix(t.Name, "Repository") && t.TargetType == "" {
		if params := fn.ChildByFieldName("parameters"); params != nil {
			if match := pyParamAnnot.FindStringSubmatch(params.Content(content)); match != nil {
				t.TargetType = match[1]
			}
		}
	}

	t.Methods = append(t.Methods, m)
}

// repoWriteMethods are the repository methods whose parameter names the
// aggregate being persisted.
var repoWriteMethods = map[string]bool{
	"save": true, "store": true, "add": true, "update": true, "put": true,
}

// pyAccessorBody reports getter/setter shape: a body that only returns or
// assigns one attribute.
func pyAccessorBody(fn *sitter.Node, bodyText string) bool {
	body := fn.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() != 1 {
		return false
	}
	stmt := strings.TrimSpace(bodyText)
	if strings.HasPrefix(stmt, "return self.") && !strings.Contains(stmt, "(") {
		return true
	}
	return pySelfAssign.MatchString(stmt) && !strings.Contains(stmt, "(") && !strings.Contains(stmt, "raise ")
}

// pyEqualityBasis inspects __eq__ and reports which fields it compares.
func pyEqualityBasis(t *descriptor.TypeDescriptor, bodyText string) descriptor.EqualityBasis {
	usesIdentity := false
	usesOther := false
	for _, match := range pySelfRead.FindAllStringSubmatch(bodyText, -1) {
		field := match[1]
		for _, f := range t.Fields {
			if f.Name == field {
				if f.Identity {
					usesIdentity = true
				} else {
					usesOther = true
				}
			}
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
