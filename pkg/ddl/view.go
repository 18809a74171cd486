package ddl

import (
	"fmt"
	"strings"
)

// CreateView returns: CREATE [OR REPLACE] VIEW "schema"."name" AS <select>.
// The SELECT body is caller-provided SQL and is not validated beyond
// rejecting empty input; views are defined by trusted migration code.
func (b *Builder) CreateView(schema, name, selectSQL string, orReplace bool) (string, error) {
	view, err := b.qualified(schema, name)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(selectSQL)
	if body == "" {
		return "", fmt.Errorf("view body is required")
	}
	if orReplace {
		return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", view, body), nil
	}
	return fmt.Sprintf("CREATE VIEW %s AS %s", view, body), nil
}

// DropView returns: DROP VIEW [IF EXISTS] "schema"."name".
func (b *Builder) DropView(schema, name string, ifExists bool) (string, error) {
	view, err := b.qualified(schema, name)
	if err != nil {
		return "", err
	}
	if ifExists {
		return "DROP VIEW IF EXISTS " + view, nil
	}
	return "DROP VIEW " + view, nil
}
