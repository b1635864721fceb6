// Package parse classifies raw statement text for the CLI's
// passthrough path. It tokenizes just enough to tell a continuous push
// query from a pull query or an administrative statement; it is not a
// SQL parser.
package parse

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/streamql/streamql-go/query/builder"
)

// StatementLexer defines the token types for statement classification.
var StatementLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(?:''|[^'])*'`},
	{Name: "QuotedIdent", Pattern: "`[^`]*`"},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Operator", Pattern: `[<>=!+\-*/%]+`},
	{Name: "Punct", Pattern: `[(),.;\[\]]`},
	{Name: "Comment", Pattern: `--[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// adminKeywords open one-shot statements handled by the statement
// endpoint rather than the streaming one.
var adminKeywords = map[string]bool{
	"CREATE":    true,
	"DROP":      true,
	"TERMINATE": true,
	"SHOW":      true,
	"LIST":      true,
	"DESCRIBE":  true,
	"EXPLAIN":   true,
	"INSERT":    true,
}

// Classify determines the statement kind of raw statement text: a
// SELECT ending in EMIT CHANGES is a push query, a plain SELECT is a
// pull query, and recognized administrative verbs are one-shot
// statements.
func Classify(sql string) (builder.StatementKind, error) {
	words, err := keywords(sql)
	if err != nil {
		return "", err
	}
	if len(words) == 0 {
		return "", fmt.Errorf("parse: empty statement")
	}

	first := words[0]
	if adminKeywords[first] {
		return builder.KindStatement, nil
	}
	if first != "SELECT" {
		return "", fmt.Errorf("parse: unrecognized statement verb %q", first)
	}

	for i := 0; i < len(words)-1; i++ {
		if words[i] == "EMIT" && words[i+1] == "CHANGES" {
			return builder.KindPushQuery, nil
		}
	}
	return builder.KindPullQuery, nil
}

// keywords returns the upper-cased identifier tokens of the statement,
// with strings, comments and whitespace dropped.
func keywords(sql string) ([]string, error) {
	lx, err := StatementLexer.LexString("", sql)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	identType := StatementLexer.Symbols()["Ident"]
	var words []string
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		if tok.EOF() {
			return words, nil
		}
		if tok.Type == identType {
			words = append(words, strings.ToUpper(tok.Value))
		}
	}
}
