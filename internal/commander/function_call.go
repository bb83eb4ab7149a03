package commander

import (
	"errors"
	"strings"
)

var ErrFunctionRequired = errors.New("commander: function name required")

// FunctionCall composes the Matlab statement that runs a CLI-style function:
//
//	cd('<WorkDir>'); cli_argswrite('<rpf>',<Function>(cli_argsread({'a','b'})));
//
// Without a ReturnParameterFile the cli_argswrite wrapper is omitted.
type FunctionCall struct {
	WorkDir             string
	Function            string
	Args                []string
	ReturnParameterFile string
}

func (c FunctionCall) Command() (string, error) {
	fn := strings.TrimSpace(c.Function)
	if fn == "" {
		return "", ErrFunctionRequired
	}
	var b strings.Builder
	if c.WorkDir != "" {
		b.WriteString("cd(")
		b.WriteString(quote(c.WorkDir))
		b.WriteString("); ")
	}
	rpf := StripQuotes(c.ReturnParameterFile)
	if rpf != "" {
		b.WriteString("cli_argswrite(")
		b.WriteString(quote(rpf))
		b.WriteString(",")
	}
	b.WriteString(fn)
	b.WriteString("(cli_argsread({")
	for i, arg := range c.Args {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(quote(StripQuotes(arg)))
	}
	b.WriteString("}))")
	if rpf != "" {
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), nil
}

// StripQuotes removes one pair of enclosing double quotes.
func StripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// quote renders s as a Matlab char literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
