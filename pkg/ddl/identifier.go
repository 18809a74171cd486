package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe allows alphanumeric + underscores, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// typeNameRe matches native type names, optionally with precision/scale
// parameters. Accepted forms:
//
//	WORD                         → INTEGER, VARCHAR, DOUBLE PRECISION
//	WORD(digits)                 → VARCHAR(255), DECIMAL(10)
//	WORD(digits, digits)         → DECIMAL(10,2), NUMERIC(18,4)
//	WORD[]                       → INTEGER[], VARCHAR[]
//	WORD(digits)[]               → VARCHAR(255)[]
//
// Case-insensitive. Rejects anything with semicolons, parens in unexpected
// positions, comments, or other SQL injection vectors.
var typeNameRe = regexp.MustCompile(`(?i)^[A-Z][A-Z0-9_ ]*(?:\(\s*\d+\s*(?:,\s*\d+\s*)?\))?(?:\[\])?$`)

// maxIdentifierLen is the fallback identifier length limit when the dialect
// does not declare one.
const maxIdentifierLen = 128

// maxTypeNameLen is the maximum length allowed for a column type string.
const maxTypeNameLen = 64

// ValidateIdentifier checks that name is a safe SQL identifier:
//   - Non-empty
//   - At most maxLen characters (128 when maxLen is 0)
//   - Matches [a-zA-Z_][a-zA-Z0-9_]*
func ValidateIdentifier(name string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = maxIdentifierLen
	}
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxLen {
		return fmt.Errorf("name must be at most %d characters", maxLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("name must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// ValidateTypeName checks that typeName is a safe column type:
//   - Non-empty
//   - At most 64 characters
//   - Matches the allowed type pattern (word, optionally with
//     precision/scale, optionally array)
func ValidateTypeName(typeName string) error {
	if typeName == "" {
		return fmt.Errorf("column type is required")
	}
	if len(typeName) > maxTypeNameLen {
		return fmt.Errorf("column type must be at most %d characters", maxTypeNameLen)
	}
	// Reject obvious injection patterns before the regex check.
	if strings.ContainsAny(typeName, ";-'\"\\") {
		return fmt.Errorf("column type contains invalid characters")
	}
	if !typeNameRe.MatchString(typeName) {
		return fmt.Errorf("column type %q is not a recognized type pattern", typeName)
	}
	return nil
}

// validateDefault rejects default expressions carrying statement separators
// or comment markers. Defaults are rendered by the dialect's literal quoting
// or by sequence helpers, so anything beyond that is suspect.
func validateDefault(expr string) error {
	if strings.ContainsAny(expr, ";") || strings.Contains(expr, "--") {
		return fmt.Errorf("default expression contains invalid characters")
	}
	return nil
}
