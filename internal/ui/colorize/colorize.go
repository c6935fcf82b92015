// Package colorize applies terminal syntax highlighting to x86-64 assembly
// listings using chroma. Colors are disabled when FRAMESCOPE_NO_COLOR is set
// or no suitable lexer is available; callers always get usable plain text
// back.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// getAssemblyLexer returns an Intel-syntax assembly lexer with fallbacks.
func getAssemblyLexer() chroma.Lexer {
	candidates := []string{"nasm", "gas", "GAS", "Gas"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getListingStyle returns the listing style with fallbacks.
func getListingStyle() *chroma.Style {
	candidates := []string{"frame-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter.
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

func colorsDisabled() bool {
	return os.Getenv("FRAMESCOPE_NO_COLOR") != ""
}

// Assembly highlights a multi-line assembly listing. On any failure the
// original text is returned unchanged.
func Assembly(code string) string {
	if colorsDisabled() {
		return code
	}
	lexer := getAssemblyLexer()
	if lexer == nil {
		return code
	}

	_ = FrameDark // force style registration

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter().Format(&buf, getListingStyle(), iterator); err != nil {
		return code
	}
	return buf.String()
}

// Line highlights a single source line, preserving its spacing.
func Line(line string) string {
	// Tokenising line by line keeps column alignment intact; the nasm lexer
	// does not emit newlines for single-line input.
	colored := Assembly(line)
	return strings.TrimSuffix(colored, "\n")
}

func formatter() chroma.Formatter {
	return getTerminalFormatter()
}
