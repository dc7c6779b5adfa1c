package tools

import (
	"strings"

	"github.com/mateury/next-gen-consultant/internal/domain"
)

// Grammar recognizes tool command tokens in free text.
//
// A token is '[' NAME ']' or '[' NAME ':' ARGS ']' where NAME is a known
// command name (case-insensitive, surrounding blanks allowed) and ARGS is a
// comma-separated list of trimmed strings. Tokens never nest: a '[' met before
// the closing ']' restarts the candidate at that position.
type Grammar struct {
	names map[string]domain.CommandName
}

// NewGrammar builds a grammar that recognizes the given command names.
func NewGrammar(names ...domain.CommandName) *Grammar {
	g := &Grammar{names: make(map[string]domain.CommandName, len(names))}
	for _, n := range names {
		g.names[strings.ToUpper(string(n))] = n
	}
	return g
}

// Find returns every command token in text, left to right.
func (g *Grammar) Find(text string) []domain.ToolCommand {
	var cmds []domain.ToolCommand
	start := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			start = i
		case ']':
			if start < 0 {
				continue
			}
			if cmd, ok := g.parse(text[start : i+1]); ok {
				cmds = append(cmds, cmd)
			}
			start = -1
		}
	}
	return cmds
}

// Strip removes every command token from text and tidies the blank runs left behind.
func (g *Grammar) Strip(text string) string {
	cmds := g.Find(text)
	if len(cmds) == 0 {
		return text
	}
	var b strings.Builder
	rest := text
	for _, c := range cmds {
		idx := strings.Index(rest, c.Raw)
		if idx < 0 {
			continue
		}
		b.WriteString(rest[:idx])
		rest = rest[idx+len(c.Raw):]
	}
	b.WriteString(rest)
	return collapseBlankLines(b.String())
}

// parse interprets a single bracketed candidate such as "[NAME: a, b]".
func (g *Grammar) parse(raw string) (domain.ToolCommand, bool) {
	inner := raw[1 : len(raw)-1]
	namePart, argPart, hasArgs := strings.Cut(inner, ":")

	name, ok := g.names[strings.ToUpper(strings.TrimSpace(namePart))]
	if !ok {
		return domain.ToolCommand{}, false
	}

	cmd := domain.ToolCommand{Name: name, Raw: raw, Args: []string{}}
	if hasArgs && strings.TrimSpace(argPart) != "" {
		for _, a := range strings.Split(argPart, ",") {
			cmd.Args = append(cmd.Args, strings.TrimSpace(a))
		}
	}
	return cmd, true
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
