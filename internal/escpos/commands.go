// Package escpos renders station documents into ESC/POS byte streams
// for thermal receipt printers. Documents are built from a small table
// of fixed command primitives; rendering has no side effects.
package escpos

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Command is one printer instruction. Commands are shared values and
// must not be modified.
type Command []byte

type Align byte

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Style is an ESC ! print mode. Styles combine with |.
type Style byte

const (
	StyleNormal       Style = 0x00
	StyleBold         Style = 0x08
	StyleDoubleHeight Style = 0x10
	StyleDoubleWidth  Style = 0x20
)

type CutMode byte

const (
	// CutFull cuts at the current position.
	CutFull CutMode = iota
	// CutFeed feeds to the cutter (plus n motion units) before cutting,
	// so label stock is not cut through the last printed line.
	CutFeed
)

var (
	cmdReset = Command{esc, '@'}

	alignCommands = [...]Command{
		AlignLeft:   {esc, 'a', 0},
		AlignCenter: {esc, 'a', 1},
		AlignRight:  {esc, 'a', 2},
	}

	cmdCutFull = Command{gs, 'V', 0}
)

func selectCodePage(n byte) Command { return Command{esc, 't', n} }

func printMode(s Style) Command { return Command{esc, '!', byte(s)} }

func feedLines(n byte) Command { return Command{esc, 'd', n} }

func cutPaper(mode CutMode, n byte) Command {
	if mode == CutFeed {
		return Command{gs, 'V', 'A', n}
	}
	return cmdCutFull
}

// rasterHeader is GS v 0 for a normal-density bit image of rowBytes
// bytes per row and height rows.
func rasterHeader(rowBytes, height int) Command {
	return Command{
		gs, 'v', '0', 0,
		byte(rowBytes), byte(rowBytes >> 8),
		byte(height), byte(height >> 8),
	}
}
