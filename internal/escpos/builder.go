package escpos

import (
	"image"
	"strings"
)

// Builder composes a document from command primitives. The result of
// Bytes is fully materialized and independent of the Builder.
type Builder struct {
	codePage CodePage
	commands []Command
}

// NewBuilder starts a document with a printer reset followed by the
// code page selection.
func NewBuilder(cp CodePage) *Builder {
	b := &Builder{codePage: cp}
	b.commands = append(b.commands, cmdReset, selectCodePage(cp.Number))
	return b
}

func (b *Builder) Align(a Align) *Builder {
	if int(a) >= len(alignCommands) {
		a = AlignLeft
	}
	b.commands = append(b.commands, alignCommands[a])
	return b
}

func (b *Builder) Style(s Style) *Builder {
	b.commands = append(b.commands, printMode(s))
	return b
}

// Text appends text encoded in the builder's code page.
func (b *Builder) Text(text string) *Builder {
	if encoded := b.codePage.Encode(text); len(encoded) > 0 {
		b.commands = append(b.commands, Command(encoded))
	}
	return b
}

// Line appends text followed by a line feed.
func (b *Builder) Line(text string) *Builder {
	b.Text(text)
	b.commands = append(b.commands, Command{lf})
	return b
}

// Rule prints a separator line width columns wide.
func (b *Builder) Rule(width int) *Builder {
	if width < 1 {
		width = 1
	}
	return b.Line(strings.Repeat("-", width))
}

func (b *Builder) Feed(lines int) *Builder {
	b.commands = append(b.commands, feedLines(clampByte(lines)))
	return b
}

func (b *Builder) Cut(mode CutMode, feed int) *Builder {
	b.commands = append(b.commands, cutPaper(mode, clampByte(feed)))
	return b
}

// Raster appends img as a GS v 0 bit image.
func (b *Builder) Raster(img image.Image) *Builder {
	b.commands = append(b.commands, RasterImage(img))
	return b
}

func (b *Builder) Bytes() []byte {
	size := 0
	for _, command := range b.commands {
		size += len(command)
	}
	out := make([]byte, 0, size)
	for _, command := range b.commands {
		out = append(out, command...)
	}
	return out
}

func clampByte(n int) byte {
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	default:
		return byte(n)
	}
}
