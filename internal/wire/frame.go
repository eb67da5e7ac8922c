// Package wire - явная версионированная сериализация кадров репликации.
//
// Каждый кадр начинается с фиксированного заголовка:
//
//	[Version u8][Tag u8][ObjectID u64 LE]
//
// Для кадров обновления далее идет [Mask u8] и значения установленных полей
// строго по возрастанию битов маски. Для TagControl - [Len u16 LE] и тело msgpack.
package wire

import (
	"fmt"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

// Version - текущая версия протокола. Декодер отвергает любую другую.
const Version uint8 = 1

// Tag - тип кадра.
type Tag uint8

const (
	TagUnknown Tag = iota
	// TagSpawn - полный снимок объекта: маска всегда равна FullMask вида объекта.
	TagSpawn
	// TagTransform - изменения позиции, вращения, масштаба.
	TagTransform
	// TagAppearance - изменения цвета и параметров света.
	TagAppearance
	// TagRemoved - объект больше не реплицируется этому клиенту.
	TagRemoved
	// TagControl - служебное сообщение (msgpack).
	TagControl
)

var tagNames = map[Tag]string{
	TagSpawn:      "SPAWN",
	TagTransform:  "TRANSFORM",
	TagAppearance: "APPEARANCE",
	TagRemoved:    "REMOVED",
	TagControl:    "CONTROL",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TAG(%d)", uint8(t))
}

// IsUpdate - кадр несет маску и поля.
func (t Tag) IsUpdate() bool {
	return t == TagSpawn || t == TagTransform || t == TagAppearance
}

// FrameHeader - точное представление заголовка на проводе.
type FrameHeader struct {
	Version uint8          // 1
	Tag     Tag            // 1
	Object  types.ObjectID // 8
}

// HeaderSize - размер FrameHeader в байтах.
const HeaderSize = 10

// MaxControlBody - ограничение длины тела служебного кадра.
const MaxControlBody = 65535

// Frame - декодированный кадр.
type Frame struct {
	FrameHeader
	Mask    domain.FieldMask
	State   domain.Snapshot // заполнены только поля из Mask
	Control []byte
}

// AllowedMask возвращает биты, допустимые для тега и вида объекта.
func AllowedMask(tag Tag, id types.ObjectID) domain.FieldMask {
	full := domain.FullMask(id.Kind())
	switch tag {
	case TagSpawn:
		return full
	case TagTransform:
		return full.Transform()
	case TagAppearance:
		return full.Appearance()
	default:
		return 0
	}
}

// Apply переносит поля кадра из маски в снимок получателя.
func (f *Frame) Apply(dst *domain.Snapshot) {
	dst.Kind = f.Object.Kind()
	for _, field := range f.Mask.Fields() {
		switch field {
		case domain.FieldPosition:
			dst.Position = f.State.Position
		case domain.FieldRotation:
			dst.Rotation = f.State.Rotation
		case domain.FieldScale:
			dst.Scale = f.State.Scale
		case domain.FieldColor:
			dst.Color = f.State.Color
		case domain.FieldIntensity:
			dst.Intensity = f.State.Intensity
		case domain.FieldRange:
			dst.Range = f.State.Range
		case domain.FieldShadows:
			dst.Shadows = f.State.Shadows
		}
	}
}
