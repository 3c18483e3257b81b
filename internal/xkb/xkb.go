// Package xkb compiles XKB v1 text keymaps, as delivered by Wayland
// compositors over the wl_keyboard keymap fd, into a lookup structure that
// resolves evdev key codes to keysyms and text.
//
// It understands the subset of the format compositors actually emit for
// clients: the xkb_keycodes section (name to code assignments and aliases)
// and the first group of each key in the xkb_symbols section. Key types,
// geometry and compat sections are skipped.
package xkb

import (
	"fmt"
	"strconv"
	"strings"
)

// Core modifier masks in the order the X keyboard extension defines them.
// Compositors report wl_keyboard modifier state against these bits.
const (
	ModShift   uint32 = 1 << 0
	ModLock    uint32 = 1 << 1
	ModControl uint32 = 1 << 2
	ModMod1    uint32 = 1 << 3 // Alt
	ModMod2    uint32 = 1 << 4 // NumLock
	ModMod4    uint32 = 1 << 6 // Super
)

// evdevOffset separates kernel input codes from XKB keycodes.
const evdevOffset = 8

// Keymap holds a compiled keymap plus the current modifier state.
type Keymap struct {
	// keys maps an XKB keycode to its shift levels (group one only).
	keys map[uint32][]uint32

	depressed uint32
	latched   uint32
	locked    uint32
	group     uint32
}

// Compile parses an XKB v1 text keymap.
func Compile(data []byte) (*Keymap, error) {
	src := stripComments(string(data))

	codesBody, err := sectionBody(src, "xkb_keycodes")
	if err != nil {
		return nil, err
	}
	symsBody, err := sectionBody(src, "xkb_symbols")
	if err != nil {
		return nil, err
	}

	names, aliases := parseKeycodes(codesBody)
	for alias, target := range aliases {
		if code, ok := names[target]; ok {
			names[alias] = code
		}
	}

	km := &Keymap{keys: make(map[uint32][]uint32)}
	if err := km.parseSymbols(symsBody, names); err != nil {
		return nil, err
	}
	if len(km.keys) == 0 {
		return nil, fmt.Errorf("xkb: keymap defines no symbols")
	}
	return km, nil
}

// UpdateState records the modifier state reported by the compositor.
func (k *Keymap) UpdateState(depressed, latched, locked, group uint32) {
	k.depressed = depressed
	k.latched = latched
	k.locked = locked
	k.group = group
}

// ActiveMods returns the effective modifier mask.
func (k *Keymap) ActiveMods() uint32 {
	return k.depressed | k.latched | k.locked
}

// Resolve maps an evdev key code to a keysym and its text under the current
// modifier state. The sym is 0 when the keymap does not cover the code.
func (k *Keymap) Resolve(code uint32) (sym uint32, text string) {
	levels := k.keys[code+evdevOffset]
	if len(levels) == 0 {
		return 0, ""
	}

	mods := k.ActiveMods()
	level := 0
	if mods&ModShift != 0 {
		level = 1
	}
	// Caps lock inverts the level for alphabetic keys only.
	if mods&ModLock != 0 && isLetterSym(levels[0]) {
		level ^= 1
	}
	if level >= len(levels) {
		level = 0
	}

	sym = levels[level]
	return sym, KeysymText(sym)
}

// stripComments removes // and # line comments.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	for _, line := range strings.Split(src, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// sectionBody extracts the brace-balanced body following the named section
// keyword.
func sectionBody(src, section string) (string, error) {
	idx := strings.Index(src, section)
	if idx < 0 {
		return "", fmt.Errorf("xkb: missing %s section", section)
	}
	open := strings.IndexByte(src[idx:], '{')
	if open < 0 {
		return "", fmt.Errorf("xkb: malformed %s section", section)
	}
	start := idx + open + 1
	depth := 1
	for i := start; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[start:i], nil
			}
		}
	}
	return "", fmt.Errorf("xkb: unterminated %s section", section)
}

// parseKeycodes reads `<NAME> = N;` assignments and `alias <A> = <B>;`
// statements.
func parseKeycodes(body string) (names map[string]uint32, aliases map[string]string) {
	names = make(map[string]uint32)
	aliases = make(map[string]string)
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if isAlias := strings.HasPrefix(stmt, "alias"); isAlias {
			parts := strings.SplitN(stmt[len("alias"):], "=", 2)
			if len(parts) != 2 {
				continue
			}
			a, okA := keyName(parts[0])
			b, okB := keyName(parts[1])
			if okA && okB {
				aliases[a] = b
			}
			continue
		}
		parts := strings.SplitN(stmt, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name, ok := keyName(parts[0])
		if !ok {
			continue
		}
		code, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			continue
		}
		names[name] = uint32(code)
	}
	return names, aliases
}

// keyName trims a token of the form <NAME>.
func keyName(tok string) (string, bool) {
	tok = strings.TrimSpace(tok)
	if len(tok) < 3 || tok[0] != '<' || tok[len(tok)-1] != '>' {
		return "", false
	}
	return tok[1 : len(tok)-1], true
}

// parseSymbols reads `key <NAME> { [ sym, sym ] };` entries, taking the
// first symbol group of each key.
func (k *Keymap) parseSymbols(body string, names map[string]uint32) error {
	rest := body
	for {
		idx := strings.Index(rest, "key")
		if idx < 0 {
			return nil
		}
		rest = rest[idx+len("key"):]

		lt := strings.IndexByte(rest, '<')
		if lt < 0 {
			return nil
		}
		gt := strings.IndexByte(rest[lt:], '>')
		if gt < 0 {
			return fmt.Errorf("xkb: malformed key name")
		}
		name := rest[lt+1 : lt+gt]
		rest = rest[lt+gt+1:]

		end := strings.Index(rest, "};")
		if end < 0 {
			return fmt.Errorf("xkb: key <%s> has unterminated body", name)
		}
		kbody := rest[:end]
		rest = rest[end+2:]

		symList, ok := symbolList(kbody)
		if !ok {
			return fmt.Errorf("xkb: key <%s> has no symbol list", name)
		}

		code, known := names[name]
		if !known {
			continue
		}
		var levels []uint32
		for _, tok := range strings.Split(symList, ",") {
			levels = append(levels, keysymFromName(strings.TrimSpace(tok)))
		}
		if len(levels) > 0 {
			k.keys[code] = levels
		}
	}
}

// symbolList finds the group-one symbol list inside a key body. Bodies come
// either in the compact form `{ [ q, Q ] }` or the explicit form
// `{ type= "...", symbols[Group1]= [ ... ] }`.
func symbolList(body string) (string, bool) {
	search := body
	if i := strings.Index(body, "symbols"); i >= 0 {
		eq := strings.IndexByte(body[i:], '=')
		if eq < 0 {
			return "", false
		}
		search = body[i+eq+1:]
	}
	lb := strings.IndexByte(search, '[')
	if lb < 0 {
		return "", false
	}
	rb := strings.IndexByte(search[lb:], ']')
	if rb < 0 {
		return "", false
	}
	return search[lb+1 : lb+rb], true
}
