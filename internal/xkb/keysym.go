package xkb

import (
	"strconv"
	"strings"
)

// Keysym ranges and special values from the X11 keysym encoding.
const (
	// NoSymbol marks an unmapped level.
	NoSymbol uint32 = 0

	// unicodeOffset marks keysyms that directly encode a Unicode code
	// point, e.g. U+00E9 as 0x010000E9.
	unicodeOffset uint32 = 0x01000000
)

// Function and control keysyms referenced by name in keymaps.
const (
	SymBackSpace uint32 = 0xff08
	SymTab       uint32 = 0xff09
	SymReturn    uint32 = 0xff0d
	SymEscape    uint32 = 0xff1b
	SymDelete    uint32 = 0xffff
	SymHome      uint32 = 0xff50
	SymLeft      uint32 = 0xff51
	SymUp        uint32 = 0xff52
	SymRight     uint32 = 0xff53
	SymDown      uint32 = 0xff54
	SymPrior     uint32 = 0xff55
	SymNext      uint32 = 0xff56
	SymEnd       uint32 = 0xff57
	SymInsert    uint32 = 0xff63
	SymKPEnter   uint32 = 0xff8d
	SymShiftL    uint32 = 0xffe1
	SymShiftR    uint32 = 0xffe2
	SymControlL  uint32 = 0xffe3
	SymControlR  uint32 = 0xffe4
	SymCapsLock  uint32 = 0xffe5
	SymAltL      uint32 = 0xffe9
	SymAltR      uint32 = 0xffea
	SymSuperL    uint32 = 0xffeb
	SymSuperR    uint32 = 0xffec
	SymNumLock   uint32 = 0xff7f
	SymMenu      uint32 = 0xff67
	SymF1        uint32 = 0xffbe
)

// namedKeysyms covers the non-single-character names that appear in the
// keymaps compositors serialize. Single printable ASCII characters resolve
// to themselves and are not listed.
var namedKeysyms = map[string]uint32{
	"space":        0x0020,
	"exclam":       0x0021,
	"quotedbl":     0x0022,
	"numbersign":   0x0023,
	"dollar":       0x0024,
	"percent":      0x0025,
	"ampersand":    0x0026,
	"apostrophe":   0x0027,
	"parenleft":    0x0028,
	"parenright":   0x0029,
	"asterisk":     0x002a,
	"plus":         0x002b,
	"comma":        0x002c,
	"minus":        0x002d,
	"period":       0x002e,
	"slash":        0x002f,
	"colon":        0x003a,
	"semicolon":    0x003b,
	"less":         0x003c,
	"equal":        0x003d,
	"greater":      0x003e,
	"question":     0x003f,
	"at":           0x0040,
	"bracketleft":  0x005b,
	"backslash":    0x005c,
	"bracketright": 0x005d,
	"asciicircum":  0x005e,
	"underscore":   0x005f,
	"grave":        0x0060,
	"braceleft":    0x007b,
	"bar":          0x007c,
	"braceright":   0x007d,
	"asciitilde":   0x007e,

	"BackSpace":  SymBackSpace,
	"Tab":        SymTab,
	"Return":     SymReturn,
	"Escape":     SymEscape,
	"Delete":     SymDelete,
	"Home":       SymHome,
	"Left":       SymLeft,
	"Up":         SymUp,
	"Right":      SymRight,
	"Down":       SymDown,
	"Prior":      SymPrior,
	"Next":       SymNext,
	"End":        SymEnd,
	"Insert":     SymInsert,
	"KP_Enter":   SymKPEnter,
	"Shift_L":    SymShiftL,
	"Shift_R":    SymShiftR,
	"Control_L":  SymControlL,
	"Control_R":  SymControlR,
	"Caps_Lock":  SymCapsLock,
	"Alt_L":      SymAltL,
	"Alt_R":      SymAltR,
	"Super_L":    SymSuperL,
	"Super_R":    SymSuperR,
	"Num_Lock":   SymNumLock,
	"Menu":       SymMenu,
	"NoSymbol":   NoSymbol,
	"VoidSymbol": 0xffffff,
}

// keysymFromName resolves a keysym token from a symbol list.
func keysymFromName(name string) uint32 {
	if name == "" {
		return NoSymbol
	}
	if len(name) == 1 {
		c := name[0]
		if c >= 0x20 && c <= 0x7e {
			return uint32(c)
		}
	}
	if sym, ok := namedKeysyms[name]; ok {
		return sym
	}
	// F1 through F35 form a contiguous range.
	if len(name) >= 2 && name[0] == 'F' {
		if n, err := strconv.ParseUint(name[1:], 10, 8); err == nil && n >= 1 && n <= 35 {
			return SymF1 + uint32(n-1)
		}
	}
	// U<hex> encodes a Unicode code point directly.
	if strings.HasPrefix(name, "U") {
		if cp, err := strconv.ParseUint(name[1:], 16, 24); err == nil {
			return unicodeOffset + uint32(cp)
		}
	}
	if strings.HasPrefix(name, "0x") {
		if v, err := strconv.ParseUint(name[2:], 16, 32); err == nil {
			return uint32(v)
		}
	}
	return NoSymbol
}

// KeysymText returns the text a keysym produces, or "" for keysyms with no
// character interpretation.
func KeysymText(sym uint32) string {
	switch {
	case sym >= 0x20 && sym <= 0x7e:
		return string(rune(sym))
	case sym >= 0xa0 && sym <= 0xff:
		// Latin-1 keysyms map directly to their code points.
		return string(rune(sym))
	case sym >= unicodeOffset && sym <= unicodeOffset+0x10ffff:
		return string(rune(sym - unicodeOffset))
	case sym == SymReturn || sym == SymKPEnter:
		return "\n"
	case sym == SymTab:
		return "\t"
	default:
		return ""
	}
}

// isLetterSym reports whether the keysym is a lowercase Latin letter, the
// case caps lock applies to.
func isLetterSym(sym uint32) bool {
	return (sym >= 'a' && sym <= 'z') ||
		(sym >= 0xe0 && sym <= 0xfe && sym != 0xf7)
}
