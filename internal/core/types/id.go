package types

import (
	"fmt"
	"strconv"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
)

// ObjectID - 64-битный идентификатор реплицируемого объекта.
//
// ObjectID является value-type: он дешево копируется, сравнивается
// и без преобразований уходит в заголовок кадра на проводе.
//
// Формат битов (от старших к младшим):
//
//	[ Shard (8) | Kind (8) | Generation (16) | Index (32) ]
//
// Где:
//   - Shard - идентификатор сервера
//   - Kind - тип объекта (свет, примитив)
//   - Generation - версия слота (защита от устаревших ссылок)
//   - Index - индекс слота в реестре
type ObjectID uint64

// NilObjectID - нулевой идентификатор. Используется управляющими кадрами,
// которые не относятся ни к одному объекту.
const NilObjectID ObjectID = 0

// Конфигурация битов ObjectID.
const (
	bitsIndex = 32
	bitsGen   = 16
	bitsKind  = 8
	bitsShard = 8

	shiftGen   = bitsIndex
	shiftKind  = bitsIndex + bitsGen
	shiftShard = bitsIndex + bitsGen + bitsKind

	maskIndex = (1 << bitsIndex) - 1
	maskGen   = (1 << bitsGen) - 1
	maskKind  = (1 << bitsKind) - 1
	maskShard = (1 << bitsShard) - 1
)

// PackObjectID собирает ObjectID из составных частей.
//
// Функция не выполняет проверок диапазонов и предполагает,
// что входные данные валидны.
func PackObjectID(
	shardID uint8,
	kind enums.ObjectKind,
	gen uint16,
	index uint32,
) ObjectID {
	return ObjectID(
		(uint64(shardID) << shiftShard) |
			(uint64(kind) << shiftKind) |
			(uint64(gen) << shiftGen) |
			uint64(index),
	)
}

// Index возвращает индекс слота в реестре.
func (id ObjectID) Index() uint32 {
	return uint32(id & maskIndex)
}

// Generation возвращает поколение слота.
//
// Если слот переиспользован, старый ID перестает совпадать с новым.
func (id ObjectID) Generation() uint16 {
	return uint16((id >> shiftGen) & maskGen)
}

// Kind возвращает тип объекта.
func (id ObjectID) Kind() enums.ObjectKind {
	return enums.ObjectKind((id >> shiftKind) & maskKind)
}

// Shard возвращает идентификатор сервера, создавшего объект.
func (id ObjectID) Shard() uint8 {
	return uint8((id >> shiftShard) & maskShard)
}

// IsNil проверяет, является ли идентификатор нулевым.
func (id ObjectID) IsNil() bool {
	return id == NilObjectID
}

// String возвращает человекочитаемое представление для логов.
func (id ObjectID) String() string {
	if id.IsNil() {
		return "<nil>"
	}

	return fmt.Sprintf(
		"[shard=%d kind=%s gen=%d idx=%d]",
		id.Shard(),
		id.Kind(),
		id.Generation(),
		id.Index(),
	)
}

// MarshalJSON сериализует ObjectID в JSON как строку (JS теряет точность на uint64).
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(id), 10) + `"`), nil
}

// UnmarshalJSON поддерживает как строковое, так и числовое представление.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	s := string(data)

	if len(s) > 1 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" {
		*id = NilObjectID
		return nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}

	*id = ObjectID(v)
	return nil
}
