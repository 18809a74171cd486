package adapter

import "fmt"

// NotConnectedError is returned when an operation runs before Connect.
type NotConnectedError struct{}

func (e *NotConnectedError) Error() string {
	return "database connection not established"
}

// TableNotFoundError is returned when introspection targets a missing table.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %s not found", e.Table)
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check your target.type in mallard.yaml", e.Type, e.Available)
}
