package types

import "strconv"

// Operation is a named database operation used to apply a dataset at
// scenario setup or teardown. The set is closed; ParseOperation is the only
// way to obtain an Operation from user input.
type Operation int

// Supported operations. The zero value is OperationNone.
const (
	OperationNone Operation = iota
	OperationInsert
	OperationCleanInsert
	OperationUpdate
	OperationRefresh
	OperationDelete
	OperationDeleteAll
	OperationTruncateTable
)

// Default operations for the two lifecycle slots.
const (
	DefaultSetUpOperation    = OperationCleanInsert
	DefaultTearDownOperation = OperationNone
)

// operationNames maps each operation to its wire token.
var operationNames = map[Operation]string{
	OperationNone:          "NONE",
	OperationInsert:        "INSERT",
	OperationCleanInsert:   "CLEAN_INSERT",
	OperationUpdate:        "UPDATE",
	OperationRefresh:       "REFRESH",
	OperationDelete:        "DELETE",
	OperationDeleteAll:     "DELETE_ALL",
	OperationTruncateTable: "TRUNCATE_TABLE",
}

// operationsByName is the inverse of operationNames.
var operationsByName = func() map[string]Operation {
	m := make(map[string]Operation, len(operationNames))
	for op, name := range operationNames {
		m[name] = op
	}
	return m
}()

// ParseOperation resolves a wire token to its Operation. Matching is exact
// and case-sensitive. Any other input returns *UnknownOperationError.
func ParseOperation(name string) (Operation, error) {
	op, ok := operationsByName[name]
	if !ok {
		return OperationNone, &UnknownOperationError{Name: name}
	}
	return op, nil
}

// MustParseOperation is like ParseOperation but panics on unknown input.
// Intended for package-level defaults and tests.
func MustParseOperation(name string) Operation {
	op, err := ParseOperation(name)
	if err != nil {
		panic(err)
	}
	return op
}

// Operations returns every operation in declaration order.
func Operations() []Operation {
	return []Operation{
		OperationInsert,
		OperationCleanInsert,
		OperationUpdate,
		OperationRefresh,
		OperationDelete,
		OperationDeleteAll,
		OperationTruncateTable,
		OperationNone,
	}
}

// String returns the wire token, or "Operation(n)" for values outside the set.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "Operation(" + strconv.Itoa(int(o)) + ")"
}

// Valid reports whether o is a member of the closed set.
func (o Operation) Valid() bool {
	_, ok := operationNames[o]
	return ok
}

// NeedsPrimaryKey reports whether applying o matches rows by primary key.
func (o Operation) NeedsPrimaryKey() bool {
	switch o {
	case OperationUpdate, OperationRefresh, OperationDelete:
		return true
	default:
		return false
	}
}
