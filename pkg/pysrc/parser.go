package pysrc

import (
	"regexp"
	"strconv"
	"strings"
)

// Parse scans Python source into a Module. It returns a *SyntaxError for
// structural defects: unbalanced brackets, unterminated strings, malformed
// def/class headers, or inconsistent indentation.
func Parse(source string) (*Module, error) {
	sanitized, literals, err := sanitize(source)
	if err != nil {
		return nil, err
	}

	logical, err := logicalLines(sanitized)
	if err != nil {
		return nil, err
	}

	return build(logical, literals)
}

// literalRef is a placeholder for one string literal in sanitized source.
const literalMark = "\x00"

// sanitize strips comments and replaces string literals with indexed
// placeholders so later passes never trip on quoted brackets or colons.
func sanitize(source string) (string, []string, error) {
	var out strings.Builder
	var literals []string
	line := 1

	i := 0
	for i < len(source) {
		c := source[i]
		switch {
		case c == '\n':
			line++
			out.WriteByte(c)
			i++
		case c == '#':
			// Comment runs to end of line.
			for i < len(source) && source[i] != '\n' {
				i++
			}
		case c == '\'' || c == '"':
			value, consumed, lines, ok := scanString(source[i:])
			if !ok {
				return "", nil, &SyntaxError{Line: line, Message: "unterminated string literal"}
			}
			out.WriteString(literalMark + strconv.Itoa(len(literals)) + literalMark)
			literals = append(literals, value)
			// Preserve line numbering across multi-line strings.
			for j := 0; j < lines; j++ {
				out.WriteByte('\n')
			}
			line += lines
			i += consumed
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), literals, nil
}

// scanString consumes a quoted literal starting at s[0] (a quote rune) and
// returns its inner value, bytes consumed and newlines spanned.
func scanString(s string) (value string, consumed int, lines int, ok bool) {
	quote := s[0]
	triple := strings.HasPrefix(s, strings.Repeat(string(quote), 3))

	if triple {
		end := strings.Index(s[3:], strings.Repeat(string(quote), 3))
		if end < 0 {
			return "", 0, 0, false
		}
		value = s[3 : 3+end]
		consumed = end + 6
		lines = strings.Count(s[:consumed], "\n")
		return value, consumed, lines, true
	}

	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++ // skip escaped character
		case '\n':
			return "", 0, 0, false // single-quoted strings cannot span lines
		case quote:
			return s[1:i], i + 1, 0, true
		}
	}
	return "", 0, 0, false
}

// logicalLine is one statement after continuation joining.
type logicalLine struct {
	text   string
	indent int
	line   int // first physical line number
}

// logicalLines joins bracket and backslash continuations and verifies
// bracket balance.
func logicalLines(sanitized string) ([]logicalLine, error) {
	physical := strings.Split(sanitized, "\n")
	var result []logicalLine

	depth := 0
	var buf strings.Builder
	start := 0
	startIndent := 0
	continuing := false

	for idx, raw := range physical {
		lineNo := idx + 1
		if !continuing {
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" {
				continue
			}
			start = lineNo
			startIndent = indentWidth(raw)
			buf.Reset()
		}

		text := raw
		backslash := strings.HasSuffix(strings.TrimRight(text, " \t"), "\\")
		if backslash {
			t := strings.TrimRight(text, " \t")
			text = t[:len(t)-1]
		}
		buf.WriteString(text)
		buf.WriteString(" ")

		for j := 0; j < len(text); j++ {
			switch text[j] {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
				if depth < 0 {
					return nil, &SyntaxError{Line: lineNo, Message: "unbalanced closing bracket"}
				}
			}
		}

		if depth > 0 || backslash {
			continuing = true
			continue
		}
		continuing = false
		result = append(result, logicalLine{
			text:   strings.TrimSpace(buf.String()),
			indent: startIndent,
			line:   start,
		})
	}

	if depth > 0 {
		return nil, &SyntaxError{Line: len(physical), Message: "unbalanced opening bracket"}
	}
	if continuing {
		return nil, &SyntaxError{Line: len(physical), Message: "line continuation at end of file"}
	}
	return result, nil
}

func indentWidth(line string) int {
	width := 0
	for _, c := range line {
		switch c {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

var (
	classRe    = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*(\(([^)]*)\))?\s*:$`)
	defRe      = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\((.*)\)\s*(->\s*[^:]+)?\s*:$`)
	importRe   = regexp.MustCompile(`^import\s+(.+)$`)
	fromRe     = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+(.+)$`)
	callRe     = regexp.MustCompile(`([A-Za-z_][\w.]*)\s*\(`)
	assignRe   = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?::[^=]+)?=\s*(\x00\d+\x00)\s*$`)
	literalRe  = regexp.MustCompile(`\x00(\d+)\x00`)
	headerWord = regexp.MustCompile(`^(def|class|if|elif|while|for|with|return|assert|raise|del|and|or|not|in|is|lambda|yield|await|async|print)$`)
)

type scope struct {
	indent int
	class  *Class
	fn     *Function
}

// build assembles the module from logical lines using an indent stack.
func build(lines []logicalLine, literals []string) (*Module, error) {
	mod := &Module{}
	var stack []scope
	var pendingDecorators []string
	expectIndent := false
	headerIndent := 0
	headerLine := 0

	for _, ll := range lines {
		if expectIndent && ll.indent <= headerIndent {
			return nil, &SyntaxError{Line: headerLine, Message: "expected an indented block"}
		}
		expectIndent = false

		// Resolve scope: pop levels we have dedented out of.
		for len(stack) > 0 && ll.indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}

		text := ll.text

		if strings.HasPrefix(text, "@") {
			pendingDecorators = append(pendingDecorators, strings.TrimPrefix(firstWordOf(text), "@"))
			continue
		}

		if strings.HasPrefix(text, "class ") || text == "class" {
			m := classRe.FindStringSubmatch(text)
			if m == nil {
				return nil, &SyntaxError{Line: ll.line, Message: "malformed class definition"}
			}
			cls := &Class{Name: m[1], Line: ll.line}
			if m[3] != "" {
				for _, base := range strings.Split(m[3], ",") {
					base = strings.TrimSpace(base)
					if base != "" {
						cls.Bases = append(cls.Bases, base)
					}
				}
			}
			mod.Classes = append(mod.Classes, cls)
			stack = append(stack, scope{indent: ll.indent, class: cls})
			pendingDecorators = nil
			expectIndent = true
			headerIndent = ll.indent
			headerLine = ll.line
			continue
		}

		if strings.HasPrefix(text, "def ") || strings.HasPrefix(text, "async def ") {
			m := defRe.FindStringSubmatch(text)
			if m == nil {
				return nil, &SyntaxError{Line: ll.line, Message: "malformed function definition"}
			}
			fn := &Function{
				Name:            m[1],
				Params:          parseParams(m[2]),
				ReturnAnnotated: m[3] != "",
				Decorators:      pendingDecorators,
				Line:            ll.line,
			}
			pendingDecorators = nil
			if cls := enclosingClass(stack); cls != nil && directChild(stack, ll.indent) {
				cls.Methods = append(cls.Methods, fn)
			} else if len(stack) == 0 {
				mod.Functions = append(mod.Functions, fn)
			}
			stack = append(stack, scope{indent: ll.indent, fn: fn})
			expectIndent = true
			headerIndent = ll.indent
			headerLine = ll.line
			continue
		}

		// Docstring: first statement of a class/def body that is a bare
		// string literal.
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if lm := literalRe.FindStringSubmatch(text); lm != nil && literalRe.ReplaceAllString(text, "") == "" {
				idx, _ := strconv.Atoi(lm[1])
				if top.fn != nil && top.fn.Docstring == "" && top.fn.Line == previousHeader(lines, ll) {
					top.fn.Docstring = strings.TrimSpace(literals[idx])
				} else if top.class != nil && top.class.Docstring == "" && top.class.Line == previousHeader(lines, ll) {
					top.class.Docstring = strings.TrimSpace(literals[idx])
				}
			}
		}

		if m := importRe.FindStringSubmatch(text); m != nil && !strings.HasPrefix(text, "import(") {
			for _, part := range strings.Split(m[1], ",") {
				name := strings.TrimSpace(part)
				if i := strings.Index(name, " as "); i >= 0 {
					name = strings.TrimSpace(name[:i])
				}
				if name != "" {
					mod.Imports = append(mod.Imports, Import{Module: name, Line: ll.line})
				}
			}
			continue
		}
		if m := fromRe.FindStringSubmatch(text); m != nil {
			imp := Import{Module: m[1], Line: ll.line}
			for _, part := range strings.Split(m[2], ",") {
				name := strings.TrimSpace(strings.TrimPrefix(part, "("))
				name = strings.TrimSuffix(name, ")")
				if i := strings.Index(name, " as "); i >= 0 {
					name = strings.TrimSpace(name[:i])
				}
				name = strings.TrimSpace(name)
				if name != "" {
					imp.Names = append(imp.Names, name)
				}
			}
			mod.Imports = append(mod.Imports, imp)
			continue
		}

		if m := assignRe.FindStringSubmatch(text); m != nil {
			idx, _ := strconv.Atoi(strings.Trim(m[2], literalMark))
			mod.Assignments = append(mod.Assignments, Assignment{
				Name:     m[1],
				Value:    literals[idx],
				IsString: true,
				Line:     ll.line,
			})
		}

		for _, cm := range callRe.FindAllStringSubmatch(text, -1) {
			name := cm[1]
			if headerWord.MatchString(name) {
				continue
			}
			mod.Calls = append(mod.Calls, Call{Name: name, Line: ll.line})
		}
	}

	return mod, nil
}

func firstWordOf(text string) string {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '(' || c == ' ' || c == '\t' {
			return text[:i]
		}
	}
	return text
}

func enclosingClass(stack []scope) *Class {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].class != nil {
			return stack[i].class
		}
		if stack[i].fn != nil {
			return nil // def inside def: a closure, not a method
		}
	}
	return nil
}

// directChild reports whether the current line sits immediately inside the
// top scope rather than some deeper construct.
func directChild(stack []scope, indent int) bool {
	if len(stack) == 0 {
		return false
	}
	return stack[len(stack)-1].indent < indent
}

// previousHeader returns the line number of the logical line immediately
// preceding ll, used to pair docstrings with their def/class header.
func previousHeader(lines []logicalLine, current logicalLine) int {
	prev := 0
	for _, l := range lines {
		if l.line >= current.line {
			break
		}
		prev = l.line
	}
	return prev
}

// parseParams splits a def signature's parameter text on top-level commas.
func parseParams(text string) []Param {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var params []Param
	depth := 0
	start := 0
	flush := func(end int) {
		raw := strings.TrimSpace(text[start:end])
		if raw == "" {
			return
		}
		annotated := false
		if i := topLevelColon(raw); i >= 0 {
			annotated = true
			raw = raw[:i]
		}
		if i := strings.IndexByte(raw, '='); i >= 0 {
			raw = raw[:i]
		}
		// Keep leading stars so callers can tell *args/**kwargs apart.
		name := strings.TrimSpace(raw)
		if strings.Trim(name, "*") == "" {
			return
		}
		params = append(params, Param{Name: name, Annotated: annotated})
	}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(text))
	return params
}

func topLevelColon(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
