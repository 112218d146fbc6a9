package lexical

import (
	"fmt"
	"regexp"
	"strings"
)

// Entry defines a token symbol by a regular expression. A literal entry's pattern matches itself.
type Entry struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Literal bool   `json:"literal,omitempty"`
	Noise   bool   `json:"noise,omitempty"`
}

func (e *Entry) pattern() string {
	if e.Literal {
		return literalEscaper.Replace(e.Pattern)
	}
	return e.Pattern
}

// literalEscaper escapes the characters that are special outside a bracket expression.
var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`+`, `\+`,
	`?`, `\?`,
	`|`, `\|`,
	`(`, `\(`,
	`)`, `\)`,
	`[`, `\[`,
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][0-9A-Za-z_]*$`)

func validateEntries(entries []*Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("at least one entry is needed")
	}

	var errs []string
	names := map[string]int{}
	for i, e := range entries {
		if e == nil {
			errs = append(errs, fmt.Sprintf("entry #%v is empty", i+1))
			continue
		}
		if e.Name == "" {
			errs = append(errs, fmt.Sprintf("entry #%v has no name", i+1))
		} else if !namePattern.MatchString(e.Name) {
			errs = append(errs, fmt.Sprintf("entry #%v: `%v` is not an identifier", i+1, e.Name))
		} else if j, ok := names[e.Name]; ok {
			errs = append(errs, fmt.Sprintf("entries #%v and #%v are both named `%v`", j+1, i+1, e.Name))
		} else {
			names[e.Name] = i
		}
		if e.Pattern == "" {
			errs = append(errs, fmt.Sprintf("entry #%v has an empty pattern", i+1))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid entries:\n%v", strings.Join(errs, "\n"))
	}

	return nil
}
