// Package nativesql gates what the compiler is willing to splice in
// verbatim as an opaque FROM expression when a source-query is a native
// SQL string rather than MBQL (spec.md §4.5). It never executes or parses
// the statement beyond this surface check — the executor itself stays out
// of the core's scope (spec.md §1).
//
// Grounded on, and a deliberately narrowed version of,
// joaosoft-db-mcp/mcp/sql_query_validation.go's SQLValidator: the same
// normalize-then-keyword-scan shape, pared down to only what a FROM-clause
// splice needs to stay safe — reject anything that is not a single
// read-only statement.
package nativesql

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	commentLine  = regexp.MustCompile(`--[^\n]*`)
	commentBlock = regexp.MustCompile(`(?s)/\*.*?\*/`)
	extraSpace   = regexp.MustCompile(`\s+`)
	stringLit    = regexp.MustCompile(`'[^']*'`)
)

var dangerousKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "TRUNCATE", "MERGE",
	"DROP", "CREATE", "ALTER", "RENAME",
	"EXEC", "EXECUTE", "GRANT", "REVOKE",
}

// Guard rejects stmt unless it is recognizably a single read-only
// statement: starts with SELECT or WITH, carries no second
// semicolon-separated statement, and contains none of the DML/DDL/exec
// keywords a FROM-clause splice has no business seeing.
func Guard(stmt string) error {
	normalized := normalize(stmt)
	if normalized == "" {
		return fmt.Errorf("nativesql: empty statement")
	}
	if !strings.HasPrefix(normalized, "SELECT") && !strings.HasPrefix(normalized, "WITH") {
		return fmt.Errorf("nativesql: only SELECT or WITH statements may be used as a source-query")
	}

	withoutLiterals := stringLit.ReplaceAllString(normalized, "''")
	if trailing := strings.TrimSpace(strings.TrimSuffix(withoutLiterals, ";")); strings.Contains(trailing, ";") {
		return fmt.Errorf("nativesql: multiple statements are not allowed")
	}

	for _, kw := range dangerousKeywords {
		if containsKeyword(withoutLiterals, kw) {
			return fmt.Errorf("nativesql: command not allowed: %s", kw)
		}
	}
	return nil
}

func normalize(sql string) string {
	sql = commentLine.ReplaceAllString(sql, " ")
	sql = commentBlock.ReplaceAllString(sql, " ")
	sql = extraSpace.ReplaceAllString(sql, " ")
	return strings.TrimSpace(strings.ToUpper(sql))
}

func containsKeyword(sql, kw string) bool {
	re := regexp.MustCompile(`\b` + kw + `\b`)
	return re.MatchString(sql)
}
