// Package query turns client supplied select options into clause trees:
// filter expressions, order lists and field lists. Every identifier is
// validated and every value is bound, so nothing a client sends is spliced
// into SQL text.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// maxIdentifierLength is the longest name Tibero accepts.
const maxIdentifierLength = 128

// maxStringValue bounds filter string values, the VARCHAR2 limit with
// extended string sizes.
const maxStringValue = 32767

// identifierRegex matches unquoted Tibero identifiers: a letter or
// underscore followed by letters, digits, _, $ or #.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$#]*$`)

// sqlReservedWords cannot be used as client supplied identifiers.
var sqlReservedWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"EXEC": true, "EXECUTE": true, "UNION": true, "INTO": true,
	"FROM": true, "WHERE": true, "TABLE": true, "MERGE": true,
	"GRANT": true, "REVOKE": true, "INDEX": true, "VIEW": true,
	"PROCEDURE": true, "FUNCTION": true, "TRIGGER": true, "SCHEMA": true,
	"ROWNUM": true, "ROWID": true, "CONNECT": true, "START": true,
}

// ValidateIdentifier reports whether name is safe to use as a column or
// table name.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("identifier too long (max %d chars): %q", maxIdentifierLength, name)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match [a-zA-Z_][a-zA-Z0-9_$#]*", name)
	}
	if sqlReservedWords[strings.ToUpper(name)] {
		return fmt.Errorf("identifier %q is a SQL reserved word", name)
	}
	return nil
}

// ValidateIdentifiers validates multiple identifiers, returning the first error found.
func ValidateIdentifiers(names []string) error {
	for _, name := range names {
		if err := ValidateIdentifier(name); err != nil {
			return err
		}
	}
	return nil
}

// SanitizeStringValue removes NUL bytes and enforces maxLen.
func SanitizeStringValue(val string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = maxStringValue
	}
	val = strings.ReplaceAll(val, "\x00", "")
	if len(val) > maxLen {
		return "", fmt.Errorf("string value too long (max %d bytes)", maxLen)
	}
	return val, nil
}
