package domain

import (
	"strings"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
)

// Snapshot - реплицируемые поля одного объекта. Обычное значение, копируется целиком.
type Snapshot struct {
	Kind      enums.ObjectKind `json:"kind"`
	Position  Vec3             `json:"position"`
	Rotation  Quat             `json:"rotation"`
	Scale     Vec3             `json:"scale"`
	Color     Color            `json:"color"`
	Intensity float32          `json:"intensity,omitempty"`
	Range     float32          `json:"range,omitempty"`
	Shadows   bool             `json:"shadows,omitempty"`
}

// Field - номер бита поля в маске изменений.
// Порядок битов совпадает с порядком значений на проводе.
type Field uint8

const (
	FieldPosition Field = iota
	FieldRotation
	FieldScale
	FieldColor
	FieldIntensity
	FieldRange
	FieldShadows

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldPosition:  "position",
	FieldRotation:  "rotation",
	FieldScale:     "scale",
	FieldColor:     "color",
	FieldIntensity: "intensity",
	FieldRange:     "range",
	FieldShadows:   "shadows",
}

func (f Field) String() string {
	if f < fieldCount {
		return fieldNames[f]
	}
	return "unknown"
}

// FieldMask - битовая маска изменившихся полей.
type FieldMask uint8

const (
	// MaskTransform - группа трансформа: позиция, вращение, масштаб.
	MaskTransform FieldMask = 1<<FieldPosition | 1<<FieldRotation | 1<<FieldScale
	// MaskAppearance - группа цвета и параметров света.
	MaskAppearance FieldMask = 1<<FieldColor | 1<<FieldIntensity | 1<<FieldRange | 1<<FieldShadows

	maskPrimitive = MaskTransform | 1<<FieldColor
	maskLight     = MaskTransform | MaskAppearance
)

// FullMask возвращает маску "все поля" для типа объекта.
// Примитив не имеет световых полей, поэтому его маска короче.
func FullMask(kind enums.ObjectKind) FieldMask {
	switch kind {
	case enums.ObjectKindLight:
		return maskLight
	case enums.ObjectKindPrimitive:
		return maskPrimitive
	default:
		return 0
	}
}

// Has проверяет бит поля.
func (m FieldMask) Has(f Field) bool {
	return m&(1<<f) != 0
}

// With выставляет бит поля.
func (m FieldMask) With(f Field) FieldMask {
	return m | 1<<f
}

// Fields возвращает поля маски в порядке возрастания битов (порядок на проводе).
func (m FieldMask) Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		if m.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Transform и Appearance разрезают маску на две независимо отправляемые группы.
func (m FieldMask) Transform() FieldMask  { return m & MaskTransform }
func (m FieldMask) Appearance() FieldMask { return m & MaskAppearance }

func (m FieldMask) String() string {
	if m == 0 {
		return "none"
	}
	names := make([]string, 0, fieldCount)
	for _, f := range m.Fields() {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}
