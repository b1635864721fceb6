package compiler

import (
	"strings"
	"unicode"
)

// functionOverrides maps method names whose built-in function name does
// not follow the mechanical PascalCase to SCREAMING_SNAKE_CASE
// transform.
var functionOverrides = map[string]string{
	"ToUpper": "UCASE",
	"ToLower": "LCASE",
	"Length":  "LEN",
	"Trim":    "TRIM",
}

// FunctionName translates a method name to the server's built-in
// function name: an explicit override when one exists, otherwise
// PascalCase split on upper-case boundaries and joined with
// underscores (StartsWith becomes STARTS_WITH).
func FunctionName(method string) string {
	if name, ok := functionOverrides[method]; ok {
		return name
	}

	var sb strings.Builder
	for i, r := range method {
		if unicode.IsUpper(r) && i > 0 {
			sb.WriteRune('_')
		}
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}
