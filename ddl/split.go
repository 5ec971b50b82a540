package ddl

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// SplitStatements cuts a script into statements at semicolons that are not
// inside strings, quoted identifiers or comments. Blank statements are
// dropped.
func SplitStatements(src string) []string {
	lex, err := Lexer.LexString("", src)
	if err != nil {
		return nil
	}
	toks, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil
	}

	punct := Lexer.Symbols()["Punct"]
	var out []string
	start := 0
	flush := func(end int) {
		if stmt := strings.TrimSpace(src[start:end]); stmt != "" {
			out = append(out, stmt)
		}
	}
	for _, t := range toks {
		if t.EOF() {
			break
		}
		if t.Type == punct && t.Value == ";" {
			flush(t.Pos.Offset)
			start = t.Pos.Offset + 1
		}
	}
	flush(len(src))
	return out
}
