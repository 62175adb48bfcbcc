package dialect

import (
	"regexp"
	"strings"
)

// Tibero reserved words. Identifiers matching one of them are quoted.
var reservedWords = toSet(strings.Fields(strings.ToLower(`
	SHARE RAW DROP BETWEEN FROM DESC OPTION PRIOR LONG THEN
	DEFAULT ALTER IS INTO MINUS INTEGER NUMBER GRANT IDENTIFIED
	ALL TO ORDER ON FLOAT DATE HAVING CLUSTER NOWAIT RESOURCE
	ANY TABLE INDEX FOR UPDATE WHERE CHECK SMALLINT WITH DELETE
	BY ASC REVOKE LIKE SIZE RENAME NOCOMPRESS NULL GROUP VALUES
	AS IN VIEW EXCLUSIVE COMPRESS SYNONYM SELECT INSERT EXISTS
	NOT TRIGGER ELSE CREATE INTERSECT PCTFREE DISTINCT USER
	CONNECT SET MODE OF UNIQUE VARCHAR2 VARCHAR LOCK OR CHAR
	DECIMAL UNION PUBLIC AND START UID COMMENT CURRENT LEVEL`)))

// Functions rendered without parentheses when called with no arguments.
var noArgFuncs = toSet(strings.Fields(`UID CURRENT_DATE SYSDATE USER CURRENT_TIME CURRENT_TIMESTAMP`))

var legalCharacters = regexp.MustCompile(`(?i)^[A-Z0-9_$]+$`)

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Normalizer converts identifiers between the catalog's upper case storage
// and the lower case form callers use, and quotes identifiers for SQL.
//
// A lower case name is case insensitive. An upper or mixed case name is
// case sensitive and always quoted.
type Normalizer struct {
	maxLength int
}

func NewNormalizer(maxIdentifierLength int) *Normalizer {
	return &Normalizer{maxLength: maxIdentifierLength}
}

// MaxIdentifierLength is the longest identifier the server accepts.
func (n *Normalizer) MaxIdentifierLength() int { return n.maxLength }

// RequiresQuotes reports whether name must be quoted to survive as is.
func (n *Normalizer) RequiresQuotes(name string) bool {
	if name == "" {
		return true
	}
	lc := strings.ToLower(name)
	if _, ok := reservedWords[lc]; ok {
		return true
	}
	if isIllegalInitial(name[0]) {
		return true
	}
	return !legalCharacters.MatchString(name) || lc != name
}

func isIllegalInitial(c byte) bool {
	return (c >= '0' && c <= '9') || c == '_' || c == '$'
}

// Quote renders name as an identifier, quoting it only when required.
func (n *Normalizer) Quote(name string) string {
	if !n.RequiresQuotes(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteSchema renders a schema qualified name.
func (n *Normalizer) QuoteSchema(schema, name string) string {
	if schema == "" {
		return n.Quote(name)
	}
	return n.Quote(schema) + "." + n.Quote(name)
}

// Normalize converts a name read from the catalog to caller case. Upper
// case names that need no quoting become lower case; every other name is
// returned unchanged.
func (n *Normalizer) Normalize(name string) string {
	out, _ := n.NormalizeQuoted(name)
	return out
}

// NormalizeQuoted is Normalize that also reports whether the result must
// be quoted to refer to the same object, which is the case for names
// stored in lower case.
func (n *Normalizer) NormalizeQuoted(name string) (string, bool) {
	lower, upper := strings.ToLower(name), strings.ToUpper(name)
	switch {
	case lower == upper:
		return name, false
	case upper == name && !n.RequiresQuotes(lower):
		return lower, false
	case lower == name:
		return name, true
	}
	return name, false
}

// Denormalize converts a caller name to catalog case. A name wrapped in
// double quotes is taken verbatim without them.
func (n *Normalizer) Denormalize(name string) string {
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		return strings.ReplaceAll(name[1:len(name)-1], `""`, `"`)
	}
	lower, upper := strings.ToLower(name), strings.ToUpper(name)
	if lower == upper {
		return name
	}
	if lower == name && !n.RequiresQuotes(lower) {
		return upper
	}
	return name
}

// DenormalizeSchema is Denormalize for owners. The reserved word "public"
// still maps to PUBLIC.
func (n *Normalizer) DenormalizeSchema(name string) string {
	if name == "public" {
		return "PUBLIC"
	}
	return n.Denormalize(name)
}

// NormalizeAll normalizes each name.
func (n *Normalizer) NormalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = n.Normalize(name)
	}
	return out
}

// DenormalizeAll denormalizes each name.
func (n *Normalizer) DenormalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = n.Denormalize(name)
	}
	return out
}

// SavepointName strips leading underscores, which Tibero rejects.
func (n *Normalizer) SavepointName(name string) string {
	return n.Quote(strings.TrimLeft(name, "_"))
}
