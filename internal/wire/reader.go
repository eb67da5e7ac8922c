package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrShortFrame = errors.New("short frame")
	ErrVersion    = errors.New("unsupported wire version")
	ErrUnknownTag = errors.New("unknown tag")
	ErrBadMask    = errors.New("mask not allowed")
	ErrTrailing   = errors.New("trailing bytes")
	ErrNotControl = errors.New("not a control frame")
)

// Decode разбирает один кадр и проверяет версию, тег, маску и длину.
func Decode(data []byte) (Frame, error) {
	var f Frame
	r := bytes.NewReader(data)

	if err := binary.Read(r, binary.LittleEndian, &f.FrameHeader); err != nil {
		return f, fmt.Errorf("failed to read header: %w", ErrShortFrame)
	}
	if f.Version != Version {
		return f, fmt.Errorf("%w: %d (expected %d)", ErrVersion, f.Version, Version)
	}

	switch {
	case f.Tag.IsUpdate():
		if err := readUpdate(r, &f); err != nil {
			return f, err
		}
	case f.Tag == TagRemoved:
	case f.Tag == TagControl:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return f, fmt.Errorf("failed to read control length: %w", ErrShortFrame)
		}
		f.Control = make([]byte, n)
		if _, err := io.ReadFull(r, f.Control); err != nil {
			return f, fmt.Errorf("failed to read control body: %w", ErrShortFrame)
		}
	default:
		return f, fmt.Errorf("%w: %d", ErrUnknownTag, uint8(f.Tag))
	}

	if r.Len() != 0 {
		return f, fmt.Errorf("%w: %d", ErrTrailing, r.Len())
	}
	return f, nil
}

func readUpdate(r *bytes.Reader, f *Frame) error {
	m, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read mask: %w", ErrShortFrame)
	}
	f.Mask = domain.FieldMask(m)

	allowed := AllowedMask(f.Tag, f.Object)
	if f.Mask == 0 || f.Mask&^allowed != 0 {
		return fmt.Errorf("%w: %s for %s %s", ErrBadMask, f.Mask, f.Tag, f.Object)
	}
	if f.Tag == TagSpawn && f.Mask != allowed {
		return fmt.Errorf("%w: spawn must carry all fields, got %s", ErrBadMask, f.Mask)
	}

	f.State.Kind = f.Object.Kind()
	for _, field := range f.Mask.Fields() {
		var err error
		switch field {
		case domain.FieldPosition:
			err = binary.Read(r, binary.LittleEndian, &f.State.Position)
		case domain.FieldRotation:
			err = binary.Read(r, binary.LittleEndian, &f.State.Rotation)
		case domain.FieldScale:
			err = binary.Read(r, binary.LittleEndian, &f.State.Scale)
		case domain.FieldColor:
			err = binary.Read(r, binary.LittleEndian, &f.State.Color)
		case domain.FieldIntensity:
			err = binary.Read(r, binary.LittleEndian, &f.State.Intensity)
		case domain.FieldRange:
			err = binary.Read(r, binary.LittleEndian, &f.State.Range)
		case domain.FieldShadows:
			var b byte
			b, err = r.ReadByte()
			f.State.Shadows = b != 0
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", field, ErrShortFrame)
		}
	}
	return nil
}

// DecodeControl разбирает тело служебного кадра.
func DecodeControl(f Frame, v any) error {
	if f.Tag != TagControl {
		return fmt.Errorf("%w: %s", ErrNotControl, f.Tag)
	}
	return msgpack.Unmarshal(f.Control, v)
}
