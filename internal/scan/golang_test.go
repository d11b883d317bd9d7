package scan

import (
	"testing"

	"github.com/pedromsantos/dddlint/internal/descriptor"
)

func parseGo(t *testing.T, src string) []descriptor.TypeDescriptor {
	t.Helper()
	types, err := NewGoParser().Parse("test.go", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return types
}

func typeNamed(t *testing.T, types []descriptor.TypeDescriptor, name string) *descriptor.TypeDescriptor {
	t.Helper()
	for i := range types {
		if types[i].Name == name {
			return &types[i]
		}
	}
	t.Fatalf("no type %s in %v", name, typeNames(types))
	return nil
}

func typeNames(types []descriptor.TypeDescriptor) []string {
	out := make([]string, len(types))
	for i := range types {
		out[i] = types[i].Name
	}
	return out
}

func TestGoParser_StructFields(t *testing.T) {
	src := `package orders

type Order struct {
	id      OrderID
	Status  string
	lines   []OrderLine
}
`
	types := parseGo(t, src)
	order := typeNamed(t, types, "Order")

	if len(order.Fields) != 3 {
		t.Fatalf("fields = %+v, want 3", order.Fields)
	}
	id := order.Fields[0]
	if !id.Identity {
		t.Error("id field not recognized as identity")
	}
	if id.Mutable {
		t.Error("unexported field without setter must not be mutable")
	}
	if !order.Fields[1].Mutable {
		t.Error("exported field must be mutable")
	}
	if got, ok := order.IdentityField(); !ok || got.Name != "id" {
		t.Errorf("IdentityField = %+v, want id", got)
	}
}

func TestGoParser_NamedBasicType(t *testing.T) {
	types := parseGo(t, "package vo\n\ntype Email string\n")
	email := typeNamed(t, types, "Email")
	if len(email.Fields) != 1 || email.Fields[0].Mutable {
		t.Errorf("fields = %+v, want one immutable value field", email.Fields)
	}
}

func TestGoParser_Interface(t *testing.T) {
	src := `package orders

type OrderRepository interface {
	Closer
	Save(o *Order) error
	ByID(id OrderID) (*Order, error)
}
`
	types := parseGo(t, src)
	repo := typeNamed(t, types, "OrderRepository")

	if !repo.Abstract {
		t.Error("interface not marked abstract")
	}
	if len(repo.Methods) != 2 {
		t.Errorf("methods = %+v, want Save and ByID", repo.Methods)
	}
	if len(repo.Implements) != 1 || repo.Implements[0] != "Closer" {
		t.Errorf("embedded interfaces = %v, want [Closer]", repo.Implements)
	}
}

func TestGoParser_ConstructorValidation(t *testing.T) {
	src := `package orders

import "errors"

type Order struct {
	id OrderID
}

func NewOrder(id OrderID) (*Order, error) {
	if id == "" {
		return nil, errors.New("order id required")
	}
	return &Order{id: id}, nil
}
`
	types := parseGo(t, src)
	order := typeNamed(t, types, "Order")

	var ctor *descriptor.Method
	for i := range order.Methods {
		if order.Methods[i].Constructor {
			ctor = &order.Methods[i]
		}
	}
	if ctor == nil {
		t.Fatalf("NewOrder not attached as constructor, methods = %+v", order.Methods)
	}
	if ctor.Name != "NewOrder" || !ctor.Validates {
		t.Errorf("constructor = %+v, want NewOrder with validation", ctor)
	}
}

// Without an exact name match the constructor goes to the first declared
// type its results mention, every time the file is parsed.
func TestGoParser_ConstructorAttachmentIsDeterministic(t *testing.T) {
	src := `package vo

type Name string

type Email string

func NewPair() (Email, Name) {
	return "", ""
}
`
	for i := 0; i < 100; i++ {
		types := parseGo(t, src)
		name := typeNamed(t, types, "Name")
		email := typeNamed(t, types, "Email")
		if len(name.Methods) != 1 || !name.Methods[0].Constructor {
			t.Fatalf("parse %d: Name methods = %+v, want NewPair attached to the first declared type", i, name.Methods)
		}
		if len(email.Methods) != 0 {
			t.Fatalf("parse %d: Email methods = %+v, want none", i, email.Methods)
		}
	}
}

// An exact New<Type> match beats whatever the result types mention.
func TestGoParser_ConstructorExactNameWins(t *testing.T) {
	src := `package vo

type Name string

type Email string

func NewEmail(raw string) (Email, error) {
	return Email(raw), nil
}
`
	types := parseGo(t, src)
	email := typeNamed(t, types, "Email")
	if len(email.Methods) != 1 || email.Methods[0].Name != "NewEmail" {
		t.Fatalf("Email methods = %+v, want NewEmail", email.Methods)
	}
	if name := typeNamed(t, types, "Name"); len(name.Methods) != 0 {
		t.Errorf("Name methods = %+v, want none", name.Methods)
	}
}

func TestGoParser_AccessorsAndBehavior(t *testing.T) {
	src := `package users

type User struct {
	id    UserID
	email string
}

func (u *User) Email() string {
	return u.email
}

func (u *User) ChangeEmail(email string) error {
	if email == "" {
		return errInvalidEmail
	}
	u.email = email
	return nil
}
`
	types := parseGo(t, src)
	user := typeNamed(t, types, "User")

	for _, m := range user.Methods {
		switch m.Name {
		case "Email":
			if !m.Accessor {
				t.Error("Email() should be an accessor")
			}
		case "ChangeEmail":
			if m.Accessor {
				t.Error("ChangeEmail should not be an accessor")
			}
			if !m.Validates {
				t.Error("ChangeEmail guards its input and should validate")
			}
		}
	}
	if len(user.BehaviorMethods()) != 1 {
		t.Errorf("behavior methods = %+v, want just ChangeEmail", user.BehaviorMethods())
	}
}

func TestGoParser_SetterMakesFieldMutable(t *testing.T) {
	src := `package users

type User struct {
	name string
}

func (u *User) SetName(name string) {
	u.name = name
}
`
	types := parseGo(t, src)
	user := typeNamed(t, types, "User")
	if !user.Fields[0].Mutable {
		t.Error("field with a setter must be mutable")
	}
}

func TestGoParser_EqualityBasis(t *testing.T) {
	src := `package users

type User struct {
	id    UserID
	email string
}

func (u *User) Equals(other *User) bool {
	return u.id == other.id
}

type Money struct {
	amount   int
	currency string
}

func (m Money) Equals(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}
`
	types := parseGo(t, src)

	if got := typeNamed(t, types, "User").Equality; got != descriptor.EqualityIdentity {
		t.Errorf("User equality = %s, want identity", got)
	}
	if got := typeNamed(t, types, "Money").Equality; got != descriptor.EqualityAttributes {
		t.Errorf("Money equality = %s, want attributes", got)
	}
}

func TestGoParser_EmbeddedStructCapability(t *testing.T) {
	src := `package events

type UserEmailChanged struct {
	DomainEvent
	UserID string
}
`
	types := parseGo(t, src)
	ev := typeNamed(t, types, "UserEmailChanged")
	if len(ev.Implements) != 1 || ev.Implements[0] != "DomainEvent" {
		t.Errorf("Implements = %v, want [DomainEvent]", ev.Implements)
	}
}

func TestGoParser_SourceOrder(t *testing.T) {
	src := `package p

type Zebra struct{}

type Alpha struct{}

type Middle struct{}
`
	types := parseGo(t, src)
	want := []string{"Zebra", "Alpha", "Middle"}
	got := typeNames(types)
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("declaration order = %v, want %v", got, want)
	}
}
