package ddl

import "fmt"

// AddColumn returns: ALTER TABLE "schema"."table" ADD COLUMN "col" TYPE ...
func (b *Builder) AddColumn(schema, table string, col ColumnDef) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	def, err := b.columnDef(col)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", name, def), nil
}

// DropColumn returns: ALTER TABLE "schema"."table" DROP COLUMN "col".
func (b *Builder) DropColumn(schema, table, column string) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	col, err := b.ident(column, "column name")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", name, col), nil
}

// RenameColumn returns: ALTER TABLE "schema"."table" RENAME COLUMN "old" TO "new".
func (b *Builder) RenameColumn(schema, table, oldName, newName string) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	old, err := b.ident(oldName, "column name")
	if err != nil {
		return "", err
	}
	next, err := b.ident(newName, "column name")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", name, old, next), nil
}

// AlterColumnType returns: ALTER TABLE ... ALTER COLUMN "col" SET DATA TYPE TYPE.
// Errors when the dialect cannot change column types in place.
func (b *Builder) AlterColumnType(schema, table, column, typeName string) (string, error) {
	if !b.d.SupportsAlterColumnType {
		return "", &UnsupportedError{Dialect: b.d.Name, Operation: "ALTER COLUMN TYPE",
			Hint: "recreate the table with the new column type"}
	}
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	col, err := b.ident(column, "column name")
	if err != nil {
		return "", err
	}
	if err := ValidateTypeName(typeName); err != nil {
		return "", fmt.Errorf("invalid column type: %w", err)
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DATA TYPE %s", name, col, typeName), nil
}

// AlterColumnSetDefault returns: ALTER TABLE ... ALTER COLUMN "col" SET DEFAULT expr.
func (b *Builder) AlterColumnSetDefault(schema, table, column, defaultExpr string) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	col, err := b.ident(column, "column name")
	if err != nil {
		return "", err
	}
	if err := validateDefault(defaultExpr); err != nil {
		return "", fmt.Errorf("invalid default: %w", err)
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", name, col, defaultExpr), nil
}

// AlterColumnDropDefault returns: ALTER TABLE ... ALTER COLUMN "col" DROP DEFAULT.
func (b *Builder) AlterColumnDropDefault(schema, table, column string) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	col, err := b.ident(column, "column name")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", name, col), nil
}

// AlterColumnNull returns the SET / DROP NOT NULL form.
func (b *Builder) AlterColumnNull(schema, table, column string, nullable bool) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	col, err := b.ident(column, "column name")
	if err != nil {
		return "", err
	}
	if nullable {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", name, col), nil
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", name, col), nil
}
