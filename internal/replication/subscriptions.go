package replication

import (
	"sort"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Locator сообщает текущую комнату клиента.
type Locator interface {
	CurrentRoom(sub domain.SubscriberID) domain.RoomID
}

// LocatorFunc - адаптер функции к Locator.
type LocatorFunc func(sub domain.SubscriberID) domain.RoomID

func (f LocatorFunc) CurrentRoom(sub domain.SubscriberID) domain.RoomID { return f(sub) }

type clientState struct {
	checked  bool
	lastRoom domain.RoomID
	desired  []domain.RoomID
}

// RefreshStats - итог одного прохода менеджера подписок.
type RefreshStats struct {
	Checked      int
	Skipped      int
	Subscribed   int
	Unsubscribed int
}

// SubscriptionManager периодически пересчитывает, какие группы "рядом" с каждым клиентом.
type SubscriptionManager struct {
	registry *Registry
	locator  Locator
	clients  map[domain.SubscriberID]*clientState
	log      *logrus.Entry
}

func NewSubscriptionManager(registry *Registry, locator Locator) *SubscriptionManager {
	return &SubscriptionManager{
		registry: registry,
		locator:  locator,
		clients:  make(map[domain.SubscriberID]*clientState),
		log:      logger.For("subscriptions"),
	}
}

// Connect начинает отслеживать клиента. Подписки появятся при ближайшем Refresh.
func (m *SubscriptionManager) Connect(sub domain.SubscriberID) {
	if _, ok := m.clients[sub]; ok {
		return
	}
	m.clients[sub] = &clientState{}
}

// Disconnect убирает клиента из всех групп без отправки кадров.
func (m *SubscriptionManager) Disconnect(sub domain.SubscriberID) {
	st, ok := m.clients[sub]
	if !ok {
		return
	}
	for _, room := range st.desired {
		if g := m.registry.Group(room); g != nil {
			g.DropSubscriber(sub)
		}
	}
	delete(m.clients, sub)
}

// Invalidate заставляет следующий Refresh пересчитать всех клиентов
// (например, после появления объектов в новой комнате).
func (m *SubscriptionManager) Invalidate() {
	for _, st := range m.clients {
		st.checked = false
	}
}

// Clients - отслеживаемые клиенты по возрастанию.
func (m *SubscriptionManager) Clients() []domain.SubscriberID {
	out := make([]domain.SubscriberID, 0, len(m.clients))
	for sub := range m.clients {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Desired - группы, на которые клиент подписан по последнему расчету.
func (m *SubscriptionManager) Desired(sub domain.SubscriberID) []domain.RoomID {
	if st, ok := m.clients[sub]; ok {
		return st.desired
	}
	return nil
}

// Refresh - один проход по всем клиентам. Клиент в той же комнате пропускается.
func (m *SubscriptionManager) Refresh() RefreshStats {
	var st RefreshStats
	for _, sub := range m.Clients() {
		cs := m.clients[sub]
		room := m.locator.CurrentRoom(sub)
		if cs.checked && room == cs.lastRoom {
			st.Skipped++
			continue
		}
		st.Checked++
		cs.checked = true
		cs.lastRoom = room

		desired := m.desiredFor(room)
		added, removed := diffRooms(cs.desired, desired)

		for _, r := range removed {
			if g := m.registry.Group(r); g != nil && g.RemoveSubscriber(sub) {
				st.Unsubscribed++
			}
		}
		for _, r := range added {
			if g := m.registry.Group(r); g != nil && g.AddSubscriber(sub) {
				st.Subscribed++
			}
		}
		cs.desired = desired

		if len(added) > 0 || len(removed) > 0 {
			m.log.WithFields(logrus.Fields{
				"subscriber": sub,
				"room":       room,
				"added":      len(added),
				"removed":    len(removed),
			}).Debug("membership changed")
		}
	}
	return st
}

// desiredFor: своя группа плюс группы дальних соседей. Комната без объектов - пустое множество.
func (m *SubscriptionManager) desiredFor(room domain.RoomID) []domain.RoomID {
	if room == domain.NoRoom || !m.registry.HasObjects(room) {
		return nil
	}
	out := []domain.RoomID{room}
	if g := m.registry.Graph(); g != nil {
		for _, far := range g.FarNeighbors(room) {
			if far != room && m.registry.Group(far) != nil {
				out = append(out, far)
			}
		}
	}
	return out
}

func diffRooms(prev, next []domain.RoomID) (added, removed []domain.RoomID) {
	inNext := make(map[domain.RoomID]struct{}, len(next))
	for _, r := range next {
		inNext[r] = struct{}{}
	}
	inPrev := make(map[domain.RoomID]struct{}, len(prev))
	for _, r := range prev {
		inPrev[r] = struct{}{}
		if _, ok := inNext[r]; !ok {
			removed = append(removed, r)
		}
	}
	for _, r := range next {
		if _, ok := inPrev[r]; !ok {
			added = append(added, r)
		}
	}
	return added, removed
}
