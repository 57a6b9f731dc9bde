package markdown

import "strings"

// scanPermissive recovers inline links and images whose destinations contain
// whitespace. CommonMark (and therefore Goldmark) rejects such destinations,
// but authors write them anyway and they are worth checking.
func scanPermissive(source []byte, file string) []Reference {
	out := make([]Reference, 0)
	for i, line := range maskedLines(source) {
		lineNo := i + 1
		out = append(out, permissiveRefs(line, lineNo, file, KindImage)...)
		out = append(out, permissiveRefs(line, lineNo, file, KindLink)...)
	}
	return out
}

func permissiveRefs(line string, lineNo int, file string, kind RefKind) []Reference {
	var refs []Reference
	for i := 0; i+1 < len(line); i++ {
		var openBracket int
		if kind == KindImage {
			if line[i] != '!' || line[i+1] != '[' {
				continue
			}
			openBracket = i + 1
		} else {
			if line[i] != '[' {
				continue
			}
			if i > 0 && line[i-1] == '!' {
				continue
			}
			openBracket = i
		}

		text, target, end, ok := parseInlineConstruct(line, openBracket)
		if !ok {
			continue
		}
		i = end

		// Goldmark already handles destinations without whitespace and
		// angle-bracketed destinations; only pick up what it rejected.
		if !strings.ContainsAny(target, " \t") || strings.HasPrefix(target, "<") {
			continue
		}

		refs = append(refs, Reference{Kind: kind, Text: text, Target: target, Line: lineNo, File: file})
	}
	return refs
}

// parseInlineConstruct parses "[text](destination)" starting at the opening
// bracket. It returns the text, the destination with any title stripped, and
// the offset of the closing parenthesis.
func parseInlineConstruct(line string, openBracket int) (text, target string, end int, ok bool) {
	closeBracket := strings.Index(line[openBracket+1:], "]")
	if closeBracket == -1 {
		return "", "", 0, false
	}
	closeBracket += openBracket + 1

	if closeBracket+1 >= len(line) || line[closeBracket+1] != '(' {
		return "", "", 0, false
	}

	closeParen := strings.Index(line[closeBracket+2:], ")")
	if closeParen == -1 {
		return "", "", 0, false
	}
	closeParen += closeBracket + 2

	text = line[openBracket+1 : closeBracket]
	target = strings.TrimSpace(line[closeBracket+2 : closeParen])
	target = stripLinkTitle(target)
	if target == "" {
		return "", "", 0, false
	}
	return text, target, closeParen, true
}

// stripLinkTitle removes a trailing `"title"` or `'title'` from a destination.
func stripLinkTitle(target string) string {
	if before, _, found := strings.Cut(target, " \""); found {
		return strings.TrimSpace(before)
	}
	if before, _, found := strings.Cut(target, " '"); found {
		return strings.TrimSpace(before)
	}
	return target
}

// maskedLines splits the document into lines with code regions neutralized:
// fenced code blocks and indented code lines are blanked, inline code spans
// removed. Line count and numbering are preserved.
func maskedLines(source []byte) []string {
	lines := strings.Split(string(source), "\n")

	inCodeBlock := false
	activeFence := ""

	out := make([]string, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock, activeFence = toggleFence(inCodeBlock, activeFence, "```")
			continue
		}
		if strings.HasPrefix(trimmed, "~~~") {
			inCodeBlock, activeFence = toggleFence(inCodeBlock, activeFence, "~~~")
			continue
		}
		if inCodeBlock || strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			continue
		}
		out[i] = stripInlineCode(line)
	}
	return out
}

func toggleFence(inCodeBlock bool, activeFence, fence string) (bool, string) {
	if !inCodeBlock {
		return true, fence
	}
	if activeFence == fence {
		return false, ""
	}
	return inCodeBlock, activeFence
}

// stripInlineCode removes backtick code spans, delimiters included. An
// unclosed run of backticks is kept as-is.
func stripInlineCode(s string) string {
	if !strings.Contains(s, "`") {
		return s
	}

	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '`' {
			out.WriteByte(s[i])
			i++
			continue
		}

		run := 1
		for i+run < len(s) && s[i+run] == '`' {
			run++
		}

		marker := strings.Repeat("`", run)
		closeRel := strings.Index(s[i+run:], marker)
		if closeRel == -1 {
			out.WriteString(marker)
			i += run
			continue
		}

		i = i + run + closeRel + run
	}

	return out.String()
}
