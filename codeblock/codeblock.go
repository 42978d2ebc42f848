package codeblock

import "strings"

// Codeblock is a chat message argument split into an optional language tag
// and the code content itself.
type Codeblock struct {
	Language string
	Content  string
}

// Parse strips code fences from a chat message argument.
//
// Triple-backtick fences may carry a language tag on the opening line. An
// unterminated fence is treated as terminated at end of input. Inline
// single-backtick spans are unwrapped without a language. Anything else is
// returned verbatim.
func Parse(argument string) Codeblock {
	argument = strings.ReplaceAll(argument, "\r\n", "\n")
	trimmed := strings.TrimSpace(argument)

	if strings.HasPrefix(trimmed, "```") {
		body := strings.TrimPrefix(trimmed, "```")
		body = strings.TrimSuffix(body, "```")

		lang := ""
		if idx := strings.IndexByte(body, '\n'); idx >= 0 {
			first := strings.TrimSpace(body[:idx])
			if isLanguageTag(first) {
				lang = first
				body = body[idx+1:]
			}
		}
		return Codeblock{Language: lang, Content: strings.Trim(body, "\n")}
	}

	if strings.HasPrefix(trimmed, "`") && len(trimmed) > 1 {
		body := strings.TrimPrefix(trimmed, "`")
		body = strings.TrimSuffix(body, "`")
		return Codeblock{Content: body}
	}

	return Codeblock{Content: argument}
}

// isLanguageTag reports whether the first fence line looks like a language
// name rather than code. Fence tags have no spaces and no punctuation beyond
// what common highlighter names use.
func isLanguageTag(s string) bool {
	if s == "" || len(s) > 24 {
		return s == ""
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '_' || r == '#' || r == '.':
		default:
			return false
		}
	}
	return true
}
