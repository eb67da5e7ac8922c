package types

import (
	"fmt"
	"strconv"
	"strings"
)

// RGBA представляет упакованный цвет в формате 0xRRGGBBAA.
// Используется в шаблонах и раскладках, где цвет задается строкой "#RRGGBB[AA]".
//
//	[24:32] - R
//	[16:24] - G
//	[8:16]  - B
//	[0:8]   - A
type RGBA uint32

const (
	shiftR = 24
	shiftG = 16
	shiftB = 8

	maskChannel = 0xFF
)

// MakeRGBA собирает цвет из четырех каналов.
func MakeRGBA(r, g, b, a uint8) RGBA {
	return RGBA(uint32(r)<<shiftR | uint32(g)<<shiftG | uint32(b)<<shiftB | uint32(a))
}

func (c RGBA) R() uint8 { return uint8((uint32(c) >> shiftR) & maskChannel) }
func (c RGBA) G() uint8 { return uint8((uint32(c) >> shiftG) & maskChannel) }
func (c RGBA) B() uint8 { return uint8((uint32(c) >> shiftB) & maskChannel) }
func (c RGBA) A() uint8 { return uint8(uint32(c) & maskChannel) }

// Floats возвращает каналы в диапазоне [0..1], как их ожидает клиент.
func (c RGBA) Floats() (r, g, b, a float32) {
	return float32(c.R()) / 255, float32(c.G()) / 255, float32(c.B()) / 255, float32(c.A()) / 255
}

// ParseHexRGBA разбирает "#RRGGBB" или "#RRGGBBAA". Без альфы цвет непрозрачный.
func ParseHexRGBA(s string) (RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 6:
		hex += "FF"
	case 8:
	default:
		return 0, fmt.Errorf("invalid colour %q: want #RRGGBB or #RRGGBBAA", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return RGBA(v), nil
}

// HexColor возвращает строковое HEX-представление (например, "#00FF00FF").
func (c RGBA) HexColor() string {
	return fmt.Sprintf("#%08X", uint32(c))
}

// String реализует fmt.Stringer.
func (c RGBA) String() string {
	return "RGBA{" + c.HexColor() + "}"
}
