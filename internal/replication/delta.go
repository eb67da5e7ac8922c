package replication

import (
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/wire"
)

// Delta - результат сравнения снимков.
// Full=true значит, что предыдущего снимка не было и отправляется все.
type Delta struct {
	Mask domain.FieldMask
	Full bool
}

func (d Delta) Empty() bool { return d.Mask == 0 }

// Fields - измененные поля в порядке записи на провод.
func (d Delta) Fields() []domain.Field { return d.Mask.Fields() }

// ComputeDelta сравнивает снимки побитово. prev == nil означает "никогда не отправлялось".
// Учитываются только поля, существующие для вида объекта.
func ComputeDelta(prev, cur *domain.Snapshot) Delta {
	full := domain.FullMask(cur.Kind)
	if prev == nil {
		return Delta{Mask: full, Full: true}
	}

	var m domain.FieldMask
	if !prev.Position.Same(cur.Position) {
		m = m.With(domain.FieldPosition)
	}
	if !prev.Rotation.Same(cur.Rotation) {
		m = m.With(domain.FieldRotation)
	}
	if !prev.Scale.Same(cur.Scale) {
		m = m.With(domain.FieldScale)
	}
	if !prev.Color.Same(cur.Color) {
		m = m.With(domain.FieldColor)
	}
	if !domain.SameFloat(prev.Intensity, cur.Intensity) {
		m = m.With(domain.FieldIntensity)
	}
	if !domain.SameFloat(prev.Range, cur.Range) {
		m = m.With(domain.FieldRange)
	}
	if prev.Shadows != cur.Shadows {
		m = m.With(domain.FieldShadows)
	}
	return Delta{Mask: m & full}
}

// EncodeDelta превращает дельту в кадры. Полная дельта - один кадр SPAWN,
// иначе группы трансформа и внешнего вида уходят отдельными кадрами.
func EncodeDelta(id types.ObjectID, d Delta, cur *domain.Snapshot) ([][]byte, error) {
	if d.Empty() {
		return nil, nil
	}
	if d.Full {
		frame, err := wire.EncodeSpawn(id, cur)
		if err != nil {
			return nil, err
		}
		return [][]byte{frame}, nil
	}

	frames := make([][]byte, 0, 2)
	if m := d.Mask.Transform(); m != 0 {
		frame, err := wire.EncodeUpdate(wire.TagTransform, id, m, cur)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	if m := d.Mask.Appearance(); m != 0 {
		frame, err := wire.EncodeUpdate(wire.TagAppearance, id, m, cur)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
