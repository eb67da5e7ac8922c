package enums

import "strings"

// ObjectKind - тип реплицируемого объекта.
// Определяет набор полей, которые участвуют в маске изменений.
type ObjectKind uint8

const (
	ObjectKindUnknown ObjectKind = iota
	ObjectKindLight
	ObjectKindPrimitive
)

var objectKindToString = map[ObjectKind]string{
	ObjectKindLight:     "LIGHT",
	ObjectKindPrimitive: "PRIMITIVE",
}

var objectKindStringToKind = map[string]ObjectKind{
	"LIGHT":     ObjectKindLight,
	"PRIMITIVE": ObjectKindPrimitive,
}

// String возвращает строковое представление (для логов и дебага)
func (k ObjectKind) String() string {
	if val, ok := objectKindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}

// ParseObjectKind конвертирует строку в Enum (нужно для загрузки шаблонов/раскладок)
func ParseObjectKind(s string) ObjectKind {
	upper := strings.ToUpper(s)
	if val, ok := objectKindStringToKind[upper]; ok {
		return val
	}
	return ObjectKindUnknown
}

// Category - роль объекта в комнате. Путевые огни ищутся именно по категории.
type Category uint8

const (
	CategoryDecor Category = iota
	CategoryPathLight
)

var categoryToString = map[Category]string{
	CategoryDecor:     "DECOR",
	CategoryPathLight: "PATH_LIGHT",
}

var categoryStringToCategory = map[string]Category{
	"DECOR":      CategoryDecor,
	"PATH_LIGHT": CategoryPathLight,
}

func (c Category) String() string {
	if val, ok := categoryToString[c]; ok {
		return val
	}
	return "UNKNOWN"
}

// ParseCategory конвертирует строку в категорию. Неизвестные строки считаются декором.
func ParseCategory(s string) Category {
	if val, ok := categoryStringToCategory[strings.ToUpper(s)]; ok {
		return val
	}
	return CategoryDecor
}
