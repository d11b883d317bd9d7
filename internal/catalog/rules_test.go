package catalog

import (
	"testing"

	"github.com/pedromsantos/dddlint/internal/descriptor"
)

func ruleByID(t *testing.T, id string) Rule {
	t.Helper()
	for _, r := range Default().All() {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("no builtin rule %s", id)
	return Rule{}
}

func TestIdentityEqualityRule(t *testing.T) {
	rule := ruleByID(t, "ENT002")

	cases := []struct {
		name     string
		equality descriptor.EqualityBasis
		want     Status
	}{
		{"identity only", descriptor.EqualityIdentity, StatusPass},
		{"identity plus attributes", descriptor.EqualityMixed, StatusFail},
		{"attributes only", descriptor.EqualityAttributes, StatusFail},
		{"no equality declared", descriptor.EqualityDefault, StatusNotApplicable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			td := &descriptor.TypeDescriptor{
				Name:     "User",
				Fields:   []descriptor.Field{{Name: "id", Identity: true}, {Name: "email"}},
				Equality: tc.equality,
			}
			if got := rule.Check(&Context{}, td); got.Status != tc.want {
				t.Errorf("status = %s, want %s", got.Status, tc.want)
			}
		})
	}
}

func TestAnemicEntityRule(t *testing.T) {
	rule := ruleByID(t, "ENT003")

	// Scenario: a User with only getters is anemic.
	anemic := &descriptor.TypeDescriptor{
		Name: "User",
		Fields: []descriptor.Field{
			{Name: "id", Type: "UserId", Identity: true},
			{Name: "email", Type: "Email"},
			{Name: "name", Type: "string"},
		},
		Methods: []descriptor.Method{
			{Name: "GetEmail", Accessor: true},
			{Name: "GetName", Accessor: true},
		},
	}
	if got := rule.Check(&Context{}, anemic); got.Status != StatusFail {
		t.Errorf("getter-only entity: status = %s, want fail", got.Status)
	}

	rich := &descriptor.TypeDescriptor{
		Name:    "User",
		Fields:  []descriptor.Field{{Name: "id", Identity: true}},
		Methods: []descriptor.Method{{Name: "ChangeEmail", Validates: true}},
	}
	if got := rule.Check(&Context{}, rich); got.Status != StatusPass {
		t.Errorf("entity with behavior: status = %s, want pass", got.Status)
	}

	bare := &descriptor.TypeDescriptor{Name: "User", Fields: []descriptor.Field{{Name: "id", Identity: true}}}
	if got := rule.Check(&Context{}, bare); got.Status != StatusFail {
		t.Errorf("entity without methods: status = %s, want fail", got.Status)
	}
}

func TestImmutabilityRule(t *testing.T) {
	rule := ruleByID(t, "VO001")

	frozen := &descriptor.TypeDescriptor{
		Name:   "Email",
		Fields: []descriptor.Field{{Name: "value", Type: "string"}},
	}
	if got := rule.Check(&Context{}, frozen); got.Status != StatusPass {
		t.Errorf("frozen value object: status = %s, want pass", got.Status)
	}

	writable := &descriptor.TypeDescriptor{
		Name: "Money",
		Fields: []descriptor.Field{
			{Name: "amount", Mutable: true},
			{Name: "currency"},
		},
	}
	got := rule.Check(&Context{}, writable)
	if got.Status != StatusFail {
		t.Fatalf("writable value object: status = %s, want fail", got.Status)
	}
	if len(got.Evidence) != 1 || got.Evidence[0] != "amount" {
		t.Errorf("evidence = %v, want [amount]", got.Evidence)
	}
}

func TestConstructorValidationRule(t *testing.T) {
	rule := ruleByID(t, "VO003")

	validated := &descriptor.TypeDescriptor{
		Name:    "Email",
		Fields:  []descriptor.Field{{Name: "value"}},
		Methods: []descriptor.Method{{Name: "__post_init__", Constructor: true, Validates: true}},
	}
	if got := rule.Check(&Context{}, validated); got.Status != StatusPass {
		t.Errorf("validating constructor: status = %s, want pass", got.Status)
	}

	unchecked := &descriptor.TypeDescriptor{
		Name:    "Email",
		Methods: []descriptor.Method{{Name: "__init__", Constructor: true}},
	}
	if got := rule.Check(&Context{}, unchecked); got.Status != StatusFail {
		t.Errorf("non-validating constructor: status = %s, want fail", got.Status)
	}

	none := &descriptor.TypeDescriptor{Name: "Email"}
	if got := rule.Check(&Context{}, none); got.Status != StatusNotApplicable {
		t.Errorf("no constructor: status = %s, want not-applicable", got.Status)
	}
}

func TestSingleRootRule(t *testing.T) {
	rule := ruleByID(t, "AGG001")
	root := &descriptor.TypeDescriptor{Name: "Order"}

	ok := &Context{Snapshot: &descriptor.Snapshot{Clusters: []descriptor.Cluster{{
		Name: "orders", Types: []string{"Order", "OrderLine"}, Root: "Order",
		ExternallyReferenced: []string{"Order"},
	}}}}
	if got := rule.Check(ok, root); got.Status != StatusPass {
		t.Errorf("single externally referenced type: status = %s, want pass", got.Status)
	}

	leaky := &Context{Snapshot: &descriptor.Snapshot{Clusters: []descriptor.Cluster{{
		Name: "orders", Types: []string{"Order", "OrderLine"}, Root: "Order",
		ExternallyReferenced: []string{"Order", "OrderLine"},
	}}}}
	got := rule.Check(leaky, root)
	if got.Status != StatusFail {
		t.Fatalf("two externally referenced types: status = %s, want fail", got.Status)
	}
	if len(got.Evidence) != 2 {
		t.Errorf("evidence = %v, want both leaked types", got.Evidence)
	}

	if got := rule.Check(&Context{}, root); got.Status != StatusNotApplicable {
		t.Errorf("no cluster data: status = %s, want not-applicable", got.Status)
	}
}

func TestRepositoryOneToOneRule(t *testing.T) {
	rule := ruleByID(t, "REP001")

	snapshot := &descriptor.Snapshot{Types: []descriptor.TypeDescriptor{
		{Name: "Order"},
		{Name: "OrderLine"},
	}}
	categories := []descriptor.Category{
		descriptor.CategoryAggregateRoot,
		descriptor.CategoryValueObject,
	}

	// Scenario: two repositories for one aggregate root.
	crowded := &Context{
		Snapshot:       snapshot,
		Categories:     categories,
		AggregateRoots: []string{"Order"},
		Repositories:   []string{"OrderRepository", "OrderArchiveRepository"},
	}
	repo := &descriptor.TypeDescriptor{Name: "OrderRepository", TargetType: "Order", Abstract: true}
	got := rule.Check(crowded, repo)
	if got.Status != StatusFail {
		t.Fatalf("two repos, one root: status = %s, want fail", got.Status)
	}
	if len(got.Evidence) != 2 {
		t.Errorf("evidence = %v, want both repository names", got.Evidence)
	}

	balanced := &Context{
		Snapshot:       snapshot,
		Categories:     categories,
		AggregateRoots: []string{"Order"},
		Repositories:   []string{"OrderRepository"},
	}
	if got := rule.Check(balanced, repo); got.Status != StatusPass {
		t.Errorf("one repo per root: status = %s, want pass", got.Status)
	}

	wrongTarget := &descriptor.TypeDescriptor{Name: "LineRepository", TargetType: "OrderLine"}
	ctx := &Context{
		Snapshot:       snapshot,
		Categories:     categories,
		AggregateRoots: []string{"Order"},
		Repositories:   []string{"LineRepository"},
	}
	got = rule.Check(ctx, wrongTarget)
	if got.Status != StatusFail {
		t.Fatalf("repo targeting non-root: status = %s, want fail", got.Status)
	}
	if len(got.Evidence) != 1 || got.Evidence[0] != "OrderLine" {
		t.Errorf("evidence = %v, want [OrderLine]", got.Evidence)
	}
}

// A repository's target resolves against its own package first, so a
// same-named type elsewhere in the tree cannot shadow the aggregate root.
func TestRepositoryTargetResolvesWithinPackage(t *testing.T) {
	rule := ruleByID(t, "REP001")

	snapshot := &descriptor.Snapshot{Types: []descriptor.TypeDescriptor{
		{Name: "Order", Package: "billing"},
		{Name: "Order", Package: "orders"},
	}}
	ctx := &Context{
		Snapshot: snapshot,
		Categories: []descriptor.Category{
			descriptor.CategoryEntity,
			descriptor.CategoryAggregateRoot,
		},
		AggregateRoots: []string{"Order"},
		Repositories:   []string{"OrderRepository"},
	}
	repo := &descriptor.TypeDescriptor{
		Name: "OrderRepository", Package: "orders", TargetType: "Order", Abstract: true,
	}
	if got := rule.Check(ctx, repo); got.Status != StatusPass {
		t.Errorf("status = %s, want pass: the orders package Order is the root", got.Status)
	}
}

func TestPastTenseNamingRule(t *testing.T) {
	rule := ruleByID(t, "EVT001")
	if !rule.Heuristic {
		t.Error("past-tense rule must be flagged as a heuristic")
	}

	cases := []struct {
		name string
		want Status
	}{
		{"UserEmailChanged", StatusPass},
		{"UserEmailChange", StatusFail},
		{"OrderPlacedEvent", StatusPass},
		{"InvoiceSent", StatusPass},
		{"PaymentWithdrawn", StatusPass},
		{"ShipOrder", StatusFail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			td := &descriptor.TypeDescriptor{Name: tc.name}
			if got := rule.Check(&Context{}, td); got.Status != tc.want {
				t.Errorf("status = %s, want %s", got.Status, tc.want)
			}
		})
	}
}

func TestTechnicalSuffixRule(t *testing.T) {
	rule := ruleByID(t, "NAM001")

	if got := rule.Check(&Context{}, &descriptor.TypeDescriptor{Name: "OrderManager"}); got.Status != StatusFail {
		t.Errorf("OrderManager: status = %s, want fail", got.Status)
	}
	if got := rule.Check(&Context{}, &descriptor.TypeDescriptor{Name: "Order"}); got.Status != StatusPass {
		t.Errorf("Order: status = %s, want pass", got.Status)
	}
}
