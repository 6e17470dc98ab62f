package expression

import "strings"

// Substitute locates each `${{ E }}` occurrence in tmpl, parses and
// evaluates E, and replaces it with str(value). If no `${{` occurs,
// the input is returned unchanged.
func Substitute(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "${{") {
		return tmpl, nil
	}

	var out strings.Builder
	i := 0
	for {
		start := strings.Index(tmpl[i:], "${{")
		if start == -1 {
			out.WriteString(tmpl[i:])
			break
		}
		start += i
		out.WriteString(tmpl[i:start])

		end := strings.Index(tmpl[start:], "}}")
		if end == -1 {
			return "", &tokenizeError{Pos: start, Reason: "unterminated '${{' expression"}
		}
		end += start

		exprText := strings.TrimSpace(tmpl[start+3 : end])
		val, err := EvaluateExpression(exprText, ctx)
		if err != nil {
			return "", err
		}
		out.WriteString(Stringify(val))

		i = end + 2
	}
	return out.String(), nil
}

// IsTemplate reports whether s contains at least one `${{` marker.
func IsTemplate(s string) bool {
	return strings.Contains(s, "${{")
}

// ExtractTemplates returns the raw (untrimmed-of-braces, trimmed-of-
// whitespace) expression text of every `${{ E }}` occurrence in s, in
// order of appearance. Used by semantic validation to find step/
// reference usages without evaluating them.
func ExtractTemplates(s string) []string {
	var out []string
	i := 0
	for {
		start := strings.Index(s[i:], "${{")
		if start == -1 {
			break
		}
		start += i
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			break
		}
		end += start
		out = append(out, strings.TrimSpace(s[start+3:end]))
		i = end + 2
	}
	return out
}
