package plugins

import (
	"regexp"
	"strings"
)

// scanRule is one forbidden construct the scanner looks for
type scanRule struct {
	category Category
	expr     string
	pattern  *regexp.Regexp
}

// jsSpaceClass matches what \s matches in JavaScript; RE2's \s is ASCII only.
const jsSpaceClass = `[\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}]`

func newRule(category Category, expr string) scanRule {
	compiled := strings.ReplaceAll(expr, `\s`, jsSpaceClass)
	return scanRule{category: category, expr: expr, pattern: regexp.MustCompile(`(?i)` + compiled)}
}

// isJSSpace reports whether r is whitespace to a JavaScript engine
func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00A0', '\u1680', '\u2028', '\u2029', '\u202F', '\u205F', '\u3000', '\uFEFF':
		return true
	}
	return r >= '\u2000' && r <= '\u200A'
}

// defaultRules is checked in order; the first match ends the scan.
var defaultRules = []scanRule{
	newRule(CategoryDynamicEval, `eval\s*\(`),
	newRule(CategoryDynamicFunction, `Function\s*\(`),
	newRule(CategoryTimer, `setTimeout\s*\(`),
	newRule(CategoryTimer, `setInterval\s*\(`),
	newRule(CategoryProcessIntrospection, `process\.`),
	newRule(CategoryModuleLoading, `require\s*\(`),
	newRule(CategoryModuleLoading, `module\.`),
	newRule(CategoryGlobalAccess, `global\.`),
	newRule(CategoryFilesystem, `__dirname`),
	newRule(CategoryFilesystem, `__filename`),
	newRule(CategoryFilesystem, `fs\.`),
	newRule(CategoryProcessSpawn, `child_process`),
	newRule(CategoryProcessSpawn, `exec\s*\(`),
	newRule(CategoryProcessSpawn, `spawn\s*\(`),
}

// Scanner rejects plugin source that textually mentions host-escape APIs.
//
// The scan is lexical: it runs regular expressions over unparsed text. It matches
// inside comments and strings, and it misses anything reached through aliasing,
// computed property access or string concatenation. A clean scan does not mean
// the plugin is safe; the host sandbox remains the enforcement point.
type Scanner struct {
	rules []scanRule
}

// NewScanner creates a scanner with the built-in rule list
func NewScanner() *Scanner {
	return &Scanner{rules: defaultRules}
}

// Scan checks source against each rule in order and returns a *SecurityError
// for the first rule that matches.
func (s *Scanner) Scan(source string) error {
	if f := s.firstFinding(source); f != nil {
		return &SecurityError{Finding: *f}
	}
	return nil
}

// Patterns returns the rule expressions in evaluation order
func (s *Scanner) Patterns() []string {
	out := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.expr)
	}
	return out
}

func (s *Scanner) firstFinding(source string) *Finding {
	for _, rule := range s.rules {
		loc := rule.pattern.FindStringIndex(source)
		if loc == nil {
			continue
		}
		line, col := position(source, loc[0])
		return &Finding{
			Category: rule.category,
			Pattern:  rule.expr,
			Match:    source[loc[0]:loc[1]],
			Line:     line,
			Column:   col,
		}
	}
	return nil
}

// position converts a byte offset into 1-based line and column numbers
func position(source string, offset int) (int, int) {
	before := source[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}
