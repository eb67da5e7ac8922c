package replication

import (
	"fmt"
	"sort"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/spatial"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

// SpawnRequest - запрос на создание реплицируемого объекта.
type SpawnRequest struct {
	Room     domain.RoomID
	Category enums.Category
	State    domain.Snapshot // State.Kind задает вид объекта
	Handle   SceneHandle     // nil - объект живет до явного Destroy
}

// FlushStats - итог фазы рассылки.
type FlushStats struct {
	Groups int
	Frames int
}

// Registry - явный владелец всех объектов и групп одной подсистемы репликации.
// Создается при старте подсистемы и передается тем, кому он нужен.
type Registry struct {
	shard     uint8
	graph     *spatial.Graph
	transport Transport
	log       *logrus.Entry

	objects map[types.ObjectID]*Object
	groups  map[domain.RoomID]*Group

	// Слоты индексов переиспользуются, поколение отличает старые ссылки.
	nextIndex   uint32
	freeIndices []uint32
	generations map[uint32]uint16
}

// NewRegistry создает пустой реестр поверх замороженного графа.
func NewRegistry(shard uint8, graph *spatial.Graph, transport Transport) *Registry {
	return &Registry{
		shard:       shard,
		graph:       graph,
		transport:   transport,
		log:         logger.For("registry"),
		objects:     make(map[types.ObjectID]*Object),
		groups:      make(map[domain.RoomID]*Group),
		nextIndex:   1,
		generations: make(map[uint32]uint16),
	}
}

func (r *Registry) Graph() *spatial.Graph { return r.graph }

func (r *Registry) Len() int { return len(r.objects) }

func (r *Registry) allocID(kind enums.ObjectKind) types.ObjectID {
	var idx uint32
	if n := len(r.freeIndices); n > 0 {
		idx = r.freeIndices[n-1]
		r.freeIndices = r.freeIndices[:n-1]
	} else {
		idx = r.nextIndex
		r.nextIndex++
	}
	r.generations[idx]++
	if r.generations[idx] == 0 {
		r.generations[idx] = 1
	}
	return types.PackObjectID(r.shard, kind, r.generations[idx], idx)
}

// Spawn создает объект и регистрирует его в группе комнаты.
// Ошибка настройки отключает только этот объект.
func (r *Registry) Spawn(req SpawnRequest) (*Object, error) {
	kind := req.State.Kind
	if kind != enums.ObjectKindLight && kind != enums.ObjectKindPrimitive {
		return nil, domain.NewSetupError(string(req.Room), fmt.Sprintf("unsupported object kind %s", kind), nil)
	}
	if r.graph != nil {
		if _, ok := r.graph.Node(req.Room); !ok {
			return nil, domain.NewSetupError(string(req.Room), "unknown room", nil)
		}
	}

	o := &Object{
		id:        r.allocID(kind),
		room:      req.Room,
		category:  req.Category,
		handle:    req.Handle,
		onDestroy: r.forget,
	}
	// Вид задается до SetState: от него зависит, сохранятся ли поля света.
	o.live.Kind = kind
	o.SetState(req.State)
	o.last = o.live
	o.base = o.live

	g, ok := r.groups[req.Room]
	if !ok {
		g = newGroup(req.Room, r.transport)
		r.groups[req.Room] = g
	}
	g.add(o)
	r.objects[o.id] = o

	r.log.WithFields(logrus.Fields{
		"object":   o.id,
		"room":     req.Room,
		"category": req.Category,
	}).Debug("object spawned")
	return o, nil
}

// Link связывает два объекта в пару (свет + плафон). Оба должны быть живы.
func (r *Registry) Link(primary, secondary types.ObjectID) error {
	p, err := r.Object(primary)
	if err != nil {
		return err
	}
	s, err := r.Object(secondary)
	if err != nil {
		return err
	}
	if p == s {
		return domain.NewSetupError(primary.String(), "object linked to itself", nil)
	}
	p.partner, s.partner = s, p
	return nil
}

// BindingOf возвращает привязку объекта: пара, если объект связан, иначе одиночная.
func (r *Registry) BindingOf(o *Object) Binding {
	if o.partner != nil && !o.partner.destroyed {
		return LinkedPair(o, o.partner)
	}
	return Single(o)
}

// Object ищет живой объект. Устаревший идентификатор дает StaleReferenceError.
func (r *Registry) Object(id types.ObjectID) (*Object, error) {
	o, ok := r.objects[id]
	if !ok || o.destroyed {
		return nil, &domain.StaleReferenceError{Ref: id.String()}
	}
	return o, nil
}

// Destroy уничтожает объект по идентификатору.
func (r *Registry) Destroy(id types.ObjectID) error {
	o, err := r.Object(id)
	if err != nil {
		return err
	}
	o.Destroy()
	return nil
}

// forget вызывается из Object.Destroy.
func (r *Registry) forget(o *Object) {
	if cur, ok := r.objects[o.id]; !ok || cur != o {
		return
	}
	delete(r.objects, o.id)
	r.freeIndices = append(r.freeIndices, o.id.Index())
	r.log.WithField("object", o.id).Debug("object destroyed")
}

// Group возвращает группу комнаты или nil.
func (r *Registry) Group(room domain.RoomID) *Group {
	return r.groups[room]
}

// Groups - все группы по возрастанию идентификатора комнаты.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].room < out[j].room })
	return out
}

// HasObjects - в комнате есть хотя бы один реплицируемый объект.
func (r *Registry) HasObjects(room domain.RoomID) bool {
	g := r.groups[room]
	return g != nil && g.ObjectCount() > 0
}

// ObjectsIn возвращает объекты комнаты нужной категории по возрастанию идентификатора.
func (r *Registry) ObjectsIn(room domain.RoomID, category enums.Category) []*Object {
	g := r.groups[room]
	if g == nil {
		return nil
	}
	var out []*Object
	for _, o := range g.Objects() {
		if o.category == category {
			out = append(out, o)
		}
	}
	return out
}

// Objects - все живые объекты по возрастанию идентификатора.
func (r *Registry) Objects() []*Object {
	out := make([]*Object, 0, len(r.objects))
	for _, o := range r.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Detect - фаза обнаружения изменений. Возвращает число изменившихся объектов.
func (r *Registry) Detect() int {
	changed := 0
	for _, o := range r.Objects() {
		if o.Detect() {
			changed++
		}
	}
	return changed
}

// Flush - фаза рассылки по всем группам.
func (r *Registry) Flush() FlushStats {
	var st FlushStats
	for _, g := range r.Groups() {
		if n := g.Flush(); n > 0 {
			st.Groups++
			st.Frames += n
		}
	}
	return st
}
