package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

func init() {
	// Register the custom listing style on package initialization
	_ = FrameDark
}

// FrameDark is a custom style for assembly listings matching the report's
// color scheme.
var FrameDark = styles.Register(chroma.MustNewStyle("frame-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",    // Default text white
	chroma.Background:     "bg:#1e1e1e", // Dark background
	chroma.Comment:        "#6A9955",    // Green comments
	chroma.CommentPreproc: "#6A9955",    // Same for preprocessor comments

	// NASM lexer mappings
	chroma.Keyword:       "#FFFFFF", // Instructions in white
	chroma.KeywordPseudo: "#FFFFFF", // Pseudo instructions in white
	chroma.Name:          "#7C9C9D", // Generic names (registers) in teal
	chroma.NameBuiltin:   "#7C9C9D", // Builtin names (rsp, rbp) in teal
	chroma.NameVariable:  "#7C9C9D", // Variables/registers in teal

	// Numbers (displacements, immediates)
	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberBin:     "#FF5F87",
	chroma.LiteralNumberOct:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",
	chroma.LiteralNumberFloat:   "#FF5F87",

	// Labels and symbols
	chroma.NameLabel:    "#FFD700", // Function labels in gold
	chroma.NameFunction: "#FFFFFF",

	// Operators and punctuation (brackets of memory operands)
	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",

	chroma.String: "#EACD53",
}))
