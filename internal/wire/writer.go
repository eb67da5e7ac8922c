package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeUpdate пишет кадр обновления: заголовок, маску и поля по возрастанию битов.
// Маска должна быть непустой и укладываться в группу тега.
func EncodeUpdate(tag Tag, id types.ObjectID, mask domain.FieldMask, s *domain.Snapshot) ([]byte, error) {
	if !tag.IsUpdate() {
		return nil, fmt.Errorf("tag %s is not an update", tag)
	}
	if mask == 0 {
		return nil, fmt.Errorf("empty mask for %s", id)
	}
	if extra := mask &^ AllowedMask(tag, id); extra != 0 {
		return nil, fmt.Errorf("mask %s not allowed for %s %s", extra, tag, id)
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + 1 + 4*16)
	writeHeader(&buf, tag, id)
	buf.WriteByte(byte(mask))

	// bytes.Buffer не возвращает ошибок записи
	for _, field := range mask.Fields() {
		switch field {
		case domain.FieldPosition:
			_ = binary.Write(&buf, binary.LittleEndian, s.Position)
		case domain.FieldRotation:
			_ = binary.Write(&buf, binary.LittleEndian, s.Rotation)
		case domain.FieldScale:
			_ = binary.Write(&buf, binary.LittleEndian, s.Scale)
		case domain.FieldColor:
			_ = binary.Write(&buf, binary.LittleEndian, s.Color)
		case domain.FieldIntensity:
			_ = binary.Write(&buf, binary.LittleEndian, s.Intensity)
		case domain.FieldRange:
			_ = binary.Write(&buf, binary.LittleEndian, s.Range)
		case domain.FieldShadows:
			var b uint8
			if s.Shadows {
				b = 1
			}
			buf.WriteByte(b)
		}
	}
	return buf.Bytes(), nil
}

// EncodeSpawn - полный снимок для нового подписчика.
func EncodeSpawn(id types.ObjectID, s *domain.Snapshot) ([]byte, error) {
	return EncodeUpdate(TagSpawn, id, domain.FullMask(id.Kind()), s)
}

// EncodeRemoved - кадр удаления объекта из вида клиента.
func EncodeRemoved(id types.ObjectID) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, TagRemoved, id)
	return buf.Bytes()
}

// EncodeControl сериализует служебное сообщение в msgpack.
func EncodeControl(v any) ([]byte, error) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("control marshal: %w", err)
	}
	if len(body) > MaxControlBody {
		return nil, fmt.Errorf("control body too long: %d", len(body))
	}

	var buf bytes.Buffer
	writeHeader(&buf, TagControl, types.NilObjectID)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(body)))
	buf.Write(body)
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, tag Tag, id types.ObjectID) {
	h := FrameHeader{Version: Version, Tag: tag, Object: id}
	_ = binary.Write(buf, binary.LittleEndian, &h)
}
