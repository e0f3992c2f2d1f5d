package escpos

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// CodePage pairs the printer's ESC t table number with the matching
// character map.
type CodePage struct {
	Name    string
	Number  byte
	charmap *charmap.Charmap
}

var codePages = map[string]CodePage{
	"PC437":   {Name: "PC437", Number: 0, charmap: charmap.CodePage437},
	"PC850":   {Name: "PC850", Number: 2, charmap: charmap.CodePage850},
	"PC858":   {Name: "PC858", Number: 19, charmap: charmap.CodePage858},
	"PC866":   {Name: "PC866", Number: 17, charmap: charmap.CodePage866},
	"WPC1252": {Name: "WPC1252", Number: 16, charmap: charmap.Windows1252},
}

// DefaultCodePage is the power-on table of most receipt printers.
var DefaultCodePage = codePages["PC437"]

func LookupCodePage(name string) (CodePage, error) {
	if name == "" {
		return DefaultCodePage, nil
	}
	cp, ok := codePages[strings.ToUpper(name)]
	if !ok {
		return CodePage{}, fmt.Errorf("unsupported code page %q", name)
	}
	return cp, nil
}

// Encode converts text to the code page. Runes the page cannot
// represent are omitted, as are control characters, so printed text can
// never carry printer commands.
func (cp CodePage) Encode(text string) []byte {
	encoded := make([]byte, 0, len(text))
	for _, r := range text {
		if r < 0x20 || r == 0x7F {
			continue
		}
		b, ok := cp.charmap.EncodeRune(r)
		if !ok {
			continue
		}
		encoded = append(encoded, b)
	}
	return encoded
}
