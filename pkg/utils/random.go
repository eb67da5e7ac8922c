package utils

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// GenerateID создает уникальный ID для анонимного подписчика
func GenerateID() string {
	return uuid.New().String()
}

// StringToSeed превращает строку (например, имя раскладки) в сид для генератора.
// Одинаковая строка всегда дает одинаковый сид.
func StringToSeed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}
