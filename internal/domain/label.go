package domain

import "strings"

// Label - направление путевого огня относительно родительского узла BFS.
type Label uint8

const (
	LabelNone Label = iota
	LabelSeed
	LabelPlusX
	LabelMinusX
	LabelPlusZ
	LabelMinusZ
)

var labelToString = map[Label]string{
	LabelNone:   "NONE",
	LabelSeed:   "SEED",
	LabelPlusX:  "+X",
	LabelMinusX: "-X",
	LabelPlusZ:  "+Z",
	LabelMinusZ: "-Z",
}

var stringToLabel = map[string]Label{
	"NONE": LabelNone,
	"SEED": LabelSeed,
	"+X":   LabelPlusX,
	"-X":   LabelMinusX,
	"+Z":   LabelPlusZ,
	"-Z":   LabelMinusZ,
}

// ParseLabel разбирает строковое имя метки, неизвестное значение дает LabelNone.
func ParseLabel(s string) Label {
	if val, ok := stringToLabel[strings.ToUpper(s)]; ok {
		return val
	}
	return LabelNone
}

func (l Label) String() string {
	if val, ok := labelToString[l]; ok {
		return val
	}
	return "UNKNOWN"
}

// Yaw - поворот стрелки огня вокруг Y в градусах.
func (l Label) Yaw() float64 {
	switch l {
	case LabelPlusX:
		return 90
	case LabelMinusX:
		return 270
	case LabelPlusZ:
		return 0
	case LabelMinusZ:
		return 180
	default:
		return 0
	}
}

// Directional - true для четырех осевых меток.
func (l Label) Directional() bool {
	return l >= LabelPlusX && l <= LabelMinusZ
}

func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(data []byte) error {
	*l = ParseLabel(string(data))
	return nil
}
