package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/wire"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/api"
)

// ErrUnknownObject - частичное обновление пришло раньше полного снимка.
var ErrUnknownObject = errors.New("delta for object without spawn")

// Mirror - клиентская копия реплицируемых объектов.
// Собирается только из кадров, ровно так же, как это делает игровой клиент.
type Mirror struct {
	mu      sync.RWMutex
	objects map[types.ObjectID]domain.Snapshot
	control []api.ControlMessage
	frames  map[wire.Tag]int
}

func NewMirror() *Mirror {
	return &Mirror{
		objects: make(map[types.ObjectID]domain.Snapshot),
		frames:  make(map[wire.Tag]int),
	}
}

// Apply декодирует кадр и применяет его к копии.
func (m *Mirror) Apply(data []byte) error {
	f, err := wire.Decode(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[f.Tag]++

	switch f.Tag {
	case wire.TagSpawn:
		var s domain.Snapshot
		f.Apply(&s)
		m.objects[f.Object] = s
	case wire.TagTransform, wire.TagAppearance:
		s, ok := m.objects[f.Object]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownObject, f.Object)
		}
		f.Apply(&s)
		m.objects[f.Object] = s
	case wire.TagRemoved:
		delete(m.objects, f.Object)
	case wire.TagControl:
		var msg api.ControlMessage
		if err := wire.DecodeControl(f, &msg); err != nil {
			return err
		}
		m.control = append(m.control, msg)
	}
	return nil
}

// Get возвращает копию снимка объекта.
func (m *Mirror) Get(id types.ObjectID) (domain.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.objects[id]
	return s, ok
}

// Has - объект сейчас реплицируется этому клиенту.
func (m *Mirror) Has(id types.ObjectID) bool {
	_, ok := m.Get(id)
	return ok
}

func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// IDs возвращает известные объекты по возрастанию.
func (m *Mirror) IDs() []types.ObjectID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ObjectID, 0, len(m.objects))
	for id := range m.objects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Control возвращает все полученные служебные сообщения.
func (m *Mirror) Control() []api.ControlMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]api.ControlMessage(nil), m.control...)
}

// Frames - сколько кадров данного типа было применено.
func (m *Mirror) Frames(tag wire.Tag) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames[tag]
}
