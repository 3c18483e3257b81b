package xkb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeymap = `xkb_keymap {
xkb_keycodes "evdev" {
	minimum = 8;
	maximum = 255;
	<AE01> = 10;
	<AD01> = 24;
	<RTRN> = 36;
	<SPCE> = 65;
	alias <LatQ> = <AD01>;
};
xkb_types "complete" {
	// not interpreted
};
xkb_compat "complete" {
};
xkb_symbols "pc+us" {
	key <AE01> { [ 1, exclam ] };
	key <AD01> { [ q, Q ] };
	key <RTRN> { type= "TWO_LEVEL", symbols[Group1]= [ Return ] };
	key <SPCE> { [ space ] };
};
};`

func TestCompileAndResolve(t *testing.T) {
	km, err := Compile([]byte(testKeymap))
	require.NoError(t, err)

	// Hardware codes are XKB codes minus 8.
	sym, text := km.Resolve(16)
	assert.Equal(t, uint32('q'), sym)
	assert.Equal(t, "q", text)

	sym, text = km.Resolve(2)
	assert.Equal(t, uint32('1'), sym)
	assert.Equal(t, "1", text)

	sym, text = km.Resolve(28)
	assert.Equal(t, SymReturn, sym)
	assert.Equal(t, "\n", text, "explicit symbols[Group1] form parses")

	sym, text = km.Resolve(57)
	assert.Equal(t, uint32(' '), sym)
	assert.Equal(t, " ", text)

	sym, _ = km.Resolve(200)
	assert.Zero(t, sym, "unmapped code resolves to NoSymbol")
}

func TestResolveShiftLevels(t *testing.T) {
	km, err := Compile([]byte(testKeymap))
	require.NoError(t, err)

	km.UpdateState(ModShift, 0, 0, 0)
	sym, text := km.Resolve(16)
	assert.Equal(t, uint32('Q'), sym)
	assert.Equal(t, "Q", text)

	sym, text = km.Resolve(2)
	assert.Equal(t, uint32('!'), sym)
	assert.Equal(t, "!", text)
}

func TestResolveCapsLock(t *testing.T) {
	km, err := Compile([]byte(testKeymap))
	require.NoError(t, err)

	// Caps alone uppercases letters but not digits.
	km.UpdateState(0, 0, ModLock, 0)
	sym, _ := km.Resolve(16)
	assert.Equal(t, uint32('Q'), sym)
	sym, _ = km.Resolve(2)
	assert.Equal(t, uint32('1'), sym)

	// Shift under caps lowers letters again.
	km.UpdateState(ModShift, 0, ModLock, 0)
	sym, _ = km.Resolve(16)
	assert.Equal(t, uint32('q'), sym)
	sym, _ = km.Resolve(2)
	assert.Equal(t, uint32('!'), sym)
}

func TestActiveModsMergesComponents(t *testing.T) {
	km, err := Compile([]byte(testKeymap))
	require.NoError(t, err)

	km.UpdateState(ModShift, ModControl, ModLock, 0)
	assert.Equal(t, ModShift|ModControl|ModLock, km.ActiveMods())
}

func TestCompileRejectsGarbage(t *testing.T) {
	_, err := Compile([]byte("not a keymap"))
	assert.Error(t, err)

	_, err = Compile([]byte("xkb_keymap { xkb_keycodes { <A> = 9; }; xkb_symbols { }; };"))
	assert.Error(t, err, "a keymap without symbols is useless")
}

func TestKeysymFromName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want uint32
	}{
		{"single char", "q", 'q'},
		{"named punctuation", "exclam", '!'},
		{"function key", "F5", SymF1 + 4},
		{"unicode escape", "U00E9", unicodeOffset + 0xe9},
		{"hex literal", "0xff0d", SymReturn},
		{"unknown", "spongle", NoSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keysymFromName(tt.in))
		})
	}
}

func TestKeysymText(t *testing.T) {
	assert.Equal(t, "a", KeysymText('a'))
	assert.Equal(t, "é", KeysymText(0xe9), "latin-1 keysyms map directly")
	assert.Equal(t, "é", KeysymText(unicodeOffset+0xe9))
	assert.Equal(t, "\t", KeysymText(SymTab))
	assert.Equal(t, "", KeysymText(SymShiftL), "modifier keys produce no text")
}
