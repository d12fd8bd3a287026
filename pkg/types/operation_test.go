package types

import (
	"errors"
	"testing"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		name string
		want Operation
	}{
		{"INSERT", OperationInsert},
		{"CLEAN_INSERT", OperationCleanInsert},
		{"UPDATE", OperationUpdate},
		{"REFRESH", OperationRefresh},
		{"DELETE", OperationDelete},
		{"DELETE_ALL", OperationDeleteAll},
		{"TRUNCATE_TABLE", OperationTruncateTable},
		{"NONE", OperationNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOperation(tt.name)
			if err != nil {
				t.Fatalf("ParseOperation(%q) failed: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseOperation(%q) = %v, want %v", tt.name, got, tt.want)
			}
			if got.String() != tt.name {
				t.Errorf("String() = %q, want %q", got.String(), tt.name)
			}
		})
	}
}

func TestParseOperationRejectsUnknownNames(t *testing.T) {
	for _, name := range []string{"BOGUS", "insert", "Clean_Insert", " INSERT", "INSERT ", "DELETEALL", ""} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOperation(name)
			var unknown *UnknownOperationError
			if !errors.As(err, &unknown) {
				t.Fatalf("expected UnknownOperationError, got %v", err)
			}
			if unknown.Name != name {
				t.Errorf("Name = %q, want %q", unknown.Name, name)
			}
		})
	}
}

func TestOperationsCoverClosedSet(t *testing.T) {
	ops := Operations()
	if len(ops) != len(operationNames) {
		t.Fatalf("Operations() returned %d entries, want %d", len(ops), len(operationNames))
	}
	seen := map[Operation]bool{}
	for _, op := range ops {
		if !op.Valid() {
			t.Errorf("%v is not valid", op)
		}
		if seen[op] {
			t.Errorf("%v listed twice", op)
		}
		seen[op] = true

		back, err := ParseOperation(op.String())
		if err != nil || back != op {
			t.Errorf("round trip of %v gave %v, %v", op, back, err)
		}
	}
}

func TestOperationStringOutOfRange(t *testing.T) {
	op := Operation(42)
	if op.Valid() {
		t.Fatal("Operation(42) should not be valid")
	}
	if got := op.String(); got != "Operation(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestNeedsPrimaryKey(t *testing.T) {
	keyed := map[Operation]bool{
		OperationUpdate:  true,
		OperationRefresh: true,
		OperationDelete:  true,
	}
	for _, op := range Operations() {
		if got := op.NeedsPrimaryKey(); got != keyed[op] {
			t.Errorf("%v.NeedsPrimaryKey() = %v, want %v", op, got, keyed[op])
		}
	}
}

func TestMustParseOperationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown operation")
		}
	}()
	MustParseOperation("BOGUS")
}
