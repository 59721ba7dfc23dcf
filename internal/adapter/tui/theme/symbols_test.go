package theme

import "testing"

func TestInitSymbolsASCIIOverride(t *testing.T) {
	t.Setenv("CHATWIDGET_ASCII_SYMBOLS", "1")
	InitSymbols()
	t.Cleanup(func() {
		t.Setenv("CHATWIDGET_ASCII_SYMBOLS", "")
		InitSymbols()
	})

	if SymbolThumbUp != "[+]" || SymbolChecked != "[x]" {
		t.Errorf("expected ASCII symbols, got %q %q", SymbolThumbUp, SymbolChecked)
	}
}

func TestInitSymbolsUnicodeDefault(t *testing.T) {
	t.Setenv("CHATWIDGET_ASCII_SYMBOLS", "")
	t.Setenv("LANG", "en_US.UTF-8")
	InitSymbols()
	if SymbolArrowR != "→" {
		t.Errorf("SymbolArrowR = %q, want unicode arrow", SymbolArrowR)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ v, lo, hi, want int }{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}
