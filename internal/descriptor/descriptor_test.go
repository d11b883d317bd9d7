package descriptor

import "testing"

func TestIdentityField(t *testing.T) {
	td := TypeDescriptor{Fields: []Field{
		{Name: "email"},
		{Name: "id", Identity: true},
	}}
	f, ok := td.IdentityField()
	if !ok || f.Name != "id" {
		t.Errorf("IdentityField = %+v, %v; want id", f, ok)
	}

	if _, ok := (&TypeDescriptor{}).IdentityField(); ok {
		t.Error("no fields should mean no identity")
	}
}

func TestHasMutableField(t *testing.T) {
	frozen := TypeDescriptor{Fields: []Field{{Name: "value"}}}
	if frozen.HasMutableField() {
		t.Error("all-immutable type reported mutable")
	}
	loose := TypeDescriptor{Fields: []Field{{Name: "value"}, {Name: "state", Mutable: true}}}
	if !loose.HasMutableField() {
		t.Error("mutable field not reported")
	}
}

func TestBehaviorMethods(t *testing.T) {
	td := TypeDescriptor{Methods: []Method{
		{Name: "GetEmail", Accessor: true},
		{Name: "NewUser", Constructor: true},
		{Name: "ChangeEmail"},
	}}
	got := td.BehaviorMethods()
	if len(got) != 1 || got[0].Name != "ChangeEmail" {
		t.Errorf("BehaviorMethods = %+v, want just ChangeEmail", got)
	}
}

func TestSnapshotTypeByName(t *testing.T) {
	s := Snapshot{Types: []TypeDescriptor{{Name: "Order"}, {Name: "User"}}}
	if td, ok := s.TypeByName("User"); !ok || td.Name != "User" {
		t.Errorf("TypeByName(User) = %+v, %v", td, ok)
	}
	if _, ok := s.TypeByName("Ghost"); ok {
		t.Error("missing type reported as found")
	}
}
