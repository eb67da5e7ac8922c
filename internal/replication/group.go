package replication

import (
	"errors"
	"sort"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/wire"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Transport - надежная доставка непрозрачного кадра одному клиенту.
type Transport interface {
	Send(sub domain.SubscriberID, frame []byte) error
}

// GroupStats - счетчики группы для диагностики.
type GroupStats struct {
	FramesSent   int `json:"framesSent"`
	BytesSent    int `json:"bytesSent"`
	SendFailures int `json:"sendFailures"`
}

// Group - область репликации одной комнаты: объекты и текущие подписчики.
//
// Базовые снимки (baselines) существуют только для текущих подписчиков.
// Все методы вызываются из одной горутины тика.
type Group struct {
	room      domain.RoomID
	transport Transport
	log       *logrus.Entry

	objects     map[types.ObjectID]*Object
	subscribers map[domain.SubscriberID]struct{}
	baselines   map[types.ObjectID]map[domain.SubscriberID]domain.Snapshot
	pending     map[types.ObjectID]struct{}

	stats GroupStats
}

func newGroup(room domain.RoomID, transport Transport) *Group {
	return &Group{
		room:        room,
		transport:   transport,
		log:         logger.For("replication").WithField("room", room),
		objects:     make(map[types.ObjectID]*Object),
		subscribers: make(map[domain.SubscriberID]struct{}),
		baselines:   make(map[types.ObjectID]map[domain.SubscriberID]domain.Snapshot),
		pending:     make(map[types.ObjectID]struct{}),
	}
}

func (g *Group) Room() domain.RoomID { return g.room }

func (g *Group) Stats() GroupStats { return g.stats }

func (g *Group) ObjectCount() int { return len(g.objects) }

func (g *Group) PendingCount() int { return len(g.pending) }

func (g *Group) HasSubscriber(sub domain.SubscriberID) bool {
	_, ok := g.subscribers[sub]
	return ok
}

// Subscribers - текущие подписчики в отсортированном порядке.
func (g *Group) Subscribers() []domain.SubscriberID {
	out := make([]domain.SubscriberID, 0, len(g.subscribers))
	for sub := range g.subscribers {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Objects - объекты группы по возрастанию идентификатора.
func (g *Group) Objects() []*Object {
	out := make([]*Object, 0, len(g.objects))
	for _, o := range g.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Baseline возвращает последний отправленный подписчику снимок объекта.
func (g *Group) Baseline(id types.ObjectID, sub domain.SubscriberID) (domain.Snapshot, error) {
	if s, ok := g.baselines[id][sub]; ok {
		return s, nil
	}
	return domain.Snapshot{}, domain.ErrNoBaseline
}

// add регистрирует объект. Текущие подписчики получат его полным снимком при следующем Flush.
func (g *Group) add(o *Object) {
	g.objects[o.id] = o
	g.baselines[o.id] = make(map[domain.SubscriberID]domain.Snapshot)
	o.group = g
	if len(g.subscribers) > 0 {
		g.pending[o.id] = struct{}{}
	}
}

// remove снимает объект и все базовые снимки, ссылающиеся на него.
func (g *Group) remove(o *Object) {
	if _, ok := g.objects[o.id]; !ok {
		return
	}
	sent := g.baselines[o.id]
	delete(g.objects, o.id)
	delete(g.baselines, o.id)
	delete(g.pending, o.id)

	// REMOVED получают только те, кто видел объект
	frame := wire.EncodeRemoved(o.id)
	for _, sub := range g.Subscribers() {
		if _, seen := sent[sub]; seen {
			g.send(sub, frame)
		}
	}
}

// AddSubscriber добавляет клиента и сразу отправляет ему полный снимок каждого объекта.
// Повторный вызов для текущего участника ничего не делает.
func (g *Group) AddSubscriber(sub domain.SubscriberID) bool {
	if _, ok := g.subscribers[sub]; ok {
		return false
	}
	g.subscribers[sub] = struct{}{}

	for _, o := range g.Objects() {
		if _, ok := g.sendDelta(o, sub, nil); !ok {
			g.pending[o.id] = struct{}{}
		}
	}
	return true
}

// RemoveSubscriber убирает клиента, отправляет ему REMOVED для всех объектов группы
// и сразу очищает его базовые снимки.
func (g *Group) RemoveSubscriber(sub domain.SubscriberID) bool {
	return g.removeSubscriber(sub, true)
}

// DropSubscriber - то же без отправки (клиент уже отключен).
func (g *Group) DropSubscriber(sub domain.SubscriberID) bool {
	return g.removeSubscriber(sub, false)
}

func (g *Group) removeSubscriber(sub domain.SubscriberID, notify bool) bool {
	if _, ok := g.subscribers[sub]; !ok {
		return false
	}
	delete(g.subscribers, sub)

	for _, o := range g.Objects() {
		_, seen := g.baselines[o.id][sub]
		delete(g.baselines[o.id], sub)
		if notify && seen {
			g.send(sub, wire.EncodeRemoved(o.id))
		}
	}
	return true
}

// NotifyChanged помечает объект для рассылки в ближайшем Flush.
func (g *Group) NotifyChanged(o *Object) {
	if _, ok := g.objects[o.id]; !ok {
		return
	}
	g.pending[o.id] = struct{}{}
}

// Flush рассылает изменения каждому подписчику относительно его собственного базового снимка.
// Пара с неудачной отправкой сохраняет старый базовый снимок и пересчитывается в следующий раз.
func (g *Group) Flush() int {
	if len(g.pending) == 0 {
		return 0
	}

	ids := make([]types.ObjectID, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	g.pending = make(map[types.ObjectID]struct{})

	subs := g.Subscribers()
	sent := 0
	for _, id := range ids {
		o := g.objects[id]
		for _, sub := range subs {
			var prev *domain.Snapshot
			if base, ok := g.baselines[id][sub]; ok {
				prev = &base
			}
			n, ok := g.sendDelta(o, sub, prev)
			sent += n
			if !ok {
				g.pending[id] = struct{}{}
			}
		}
	}
	return sent
}

// sendDelta отправляет подписчику разницу между prev и последним обнаруженным снимком.
// Базовый снимок обновляется только при успешной отправке всех кадров.
func (g *Group) sendDelta(o *Object, sub domain.SubscriberID, prev *domain.Snapshot) (int, bool) {
	cur := o.last
	d := ComputeDelta(prev, &cur)
	if d.Empty() {
		if prev == nil {
			g.baselines[o.id][sub] = cur
		}
		return 0, true
	}

	frames, err := EncodeDelta(o.id, d, &cur)
	if err != nil {
		g.log.WithError(err).WithField("object", o.id).Error("encode failed")
		return 0, true
	}

	for i, frame := range frames {
		if !g.send(sub, frame) {
			return i, false
		}
	}
	g.baselines[o.id][sub] = cur
	return len(frames), true
}

func (g *Group) send(sub domain.SubscriberID, frame []byte) bool {
	if err := g.transport.Send(sub, frame); err != nil {
		g.stats.SendFailures++
		var te *domain.TransportError
		if !errors.As(err, &te) {
			err = &domain.TransportError{Subscriber: sub, Err: err}
		}
		g.log.WithError(err).Debug("send failed")
		return false
	}
	g.stats.FramesSent++
	g.stats.BytesSent += len(frame)
	return true
}
