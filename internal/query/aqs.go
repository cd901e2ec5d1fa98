package query

import (
	"fmt"
	"strings"
)

// propertyAliases maps the prop:value prefixes accepted in a user query to
// the indexed property they filter on.
var propertyAliases = map[string]string{
	"name":   "System.FileName",
	"ext":    "System.FileExtension",
	"kind":   "System.Kind",
	"author": "System.Author",
	"title":  "System.Title",
}

// token is one lexical unit of a user query.
type token struct {
	text    string
	phrase  bool
	negated bool // phrase written as -"..."
}

// tokenize splits a user query on whitespace, keeping double-quoted
// phrases together. An unterminated quote runs to the end of the input.
// A '-' directly before an opening quote negates the phrase.
func tokenize(q string) []token {
	var (
		tokens    []token
		current   strings.Builder
		inQuote   bool
		negPhrase bool
	)

	flush := func(phrase bool) {
		if text := current.String(); text != "" {
			tokens = append(tokens, token{text: text, phrase: phrase, negated: phrase && negPhrase})
		}
		current.Reset()
		if phrase {
			negPhrase = false
		}
	}

	for _, r := range q {
		switch {
		case r == '"':
			if inQuote {
				flush(true)
			} else {
				if current.String() == "-" {
					current.Reset()
					negPhrase = true
				}
				flush(false)
			}
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush(false)
		default:
			current.WriteRune(r)
		}
	}
	flush(inQuote)

	return tokens
}

// userQueryClause converts the small query syntax into a SQL condition:
//
//	term        CONTAINS(*,'"term*"')
//	"a phrase"  CONTAINS(*,'"a phrase"')
//	-term       NOT CONTAINS(...)
//	a OR b      (a OR b)
//	ext:go      "System.FileExtension" = '.go'
//
// Terms are ANDed. Returns "" for an empty query.
func userQueryClause(q string) string {
	tokens := tokenize(q)

	var (
		groups  [][]string
		pending bool // previous token was OR
		negate  bool
	)

	for _, tok := range tokens {
		if !tok.phrase {
			switch tok.text {
			case "OR":
				if len(groups) > 0 {
					pending = true
				}
				continue
			case "AND":
				continue
			case "NOT":
				negate = true
				continue
			}
		}

		cond, neg := termCondition(tok)
		if cond == "" {
			continue
		}
		if neg != negate {
			cond = "NOT " + cond
		}
		negate = false

		if pending {
			last := len(groups) - 1
			groups[last] = append(groups[last], cond)
			pending = false
		} else {
			groups = append(groups, []string{cond})
		}
	}

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g) == 1 {
			parts = append(parts, g[0])
		} else {
			parts = append(parts, "("+strings.Join(g, " OR ")+")")
		}
	}
	return strings.Join(parts, " AND ")
}

// termCondition builds the condition for a single token and reports whether
// the token carried its own '-' negation.
func termCondition(tok token) (string, bool) {
	text := tok.text
	if tok.phrase {
		return fmt.Sprintf(`CONTAINS(*,'"%s"')`, quoteTerm(text)), tok.negated
	}
	if text == "-" {
		return "", false
	}

	negated := false
	if strings.HasPrefix(text, "-") && len(text) > 1 {
		negated = true
		text = text[1:]
	}

	if prop, value, ok := strings.Cut(text, ":"); ok && value != "" {
		if canonical, known := propertyAliases[strings.ToLower(prop)]; known {
			return propertyCondition(strings.ToLower(prop), canonical, value), negated
		}
	}

	text = strings.TrimRight(text, "*")
	if text == "" {
		return "", false
	}
	return fmt.Sprintf(`CONTAINS(*,'"%s*"')`, quoteTerm(text)), negated
}

// propertyCondition renders a prop:value filter.
func propertyCondition(alias, property, value string) string {
	switch alias {
	case "ext":
		if !strings.HasPrefix(value, ".") {
			value = "." + value
		}
		return fmt.Sprintf(`"%s" = '%s'`, property, escapeLiteral(value))
	case "kind":
		return fmt.Sprintf(`"%s" = '%s'`, property, escapeLiteral(strings.ToLower(value)))
	case "name":
		v := strings.ReplaceAll(value, "*", "%")
		v = strings.ReplaceAll(v, "?", "_")
		if !strings.ContainsAny(v, "%_") {
			v = "%" + v + "%"
		}
		return fmt.Sprintf(`"%s" LIKE '%s'`, property, escapeLiteral(v))
	default:
		return fmt.Sprintf(`CONTAINS("%s",'"%s*"')`, property, quoteTerm(strings.TrimRight(value, "*")))
	}
}

// quoteTerm prepares text for use inside a double-quoted CONTAINS term.
func quoteTerm(s string) string {
	return escapeLiteral(strings.ReplaceAll(s, `"`, ""))
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
