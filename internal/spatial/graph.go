// Package spatial хранит граф комнат комплекса: смежность, дальних соседей и границы.
// Граф строится при загрузке уровня и после Freeze не меняется до конца раунда.
package spatial

import (
	"fmt"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

// Bounds - осевой прямоугольный объем комнаты.
type Bounds struct {
	Min domain.Vec3 `json:"min"`
	Max domain.Vec3 `json:"max"`
}

// Contains включает обе границы. Пустой объем не содержит ничего.
func (b Bounds) Contains(p domain.Vec3) bool {
	if b.Empty() {
		return false
	}
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Bounds) Empty() bool {
	return b.Max.X <= b.Min.X || b.Max.Z <= b.Min.Z
}

// Node - одна комната.
type Node struct {
	ID       domain.RoomID `json:"id"`
	Name     string        `json:"name,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Zone     string        `json:"zone,omitempty"`
	Position domain.Vec3   `json:"position"`
	Bounds   Bounds        `json:"bounds"`

	// Special - комната особой категории (КПП, выход): BFS всегда помечает ее как Seed.
	Special bool `json:"special,omitempty"`
}

type roomSet map[domain.RoomID]struct{}

// Graph - граф комнат. До Freeze заполняется, после - только читается.
type Graph struct {
	farRadius int

	nodes map[domain.RoomID]*Node
	order []domain.RoomID

	adj    map[domain.RoomID][]domain.RoomID
	adjSet map[domain.RoomID]roomSet

	far         map[domain.RoomID][]domain.RoomID
	explicitFar map[domain.RoomID][]domain.RoomID

	frozen bool
}

// NewGraph создает пустой граф. farRadius - сколько переходов считаются "рядом".
func NewGraph(farRadius int) *Graph {
	if farRadius < 1 {
		farRadius = 1
	}
	return &Graph{
		farRadius:   farRadius,
		nodes:       make(map[domain.RoomID]*Node),
		adj:         make(map[domain.RoomID][]domain.RoomID),
		adjSet:      make(map[domain.RoomID]roomSet),
		far:         make(map[domain.RoomID][]domain.RoomID),
		explicitFar: make(map[domain.RoomID][]domain.RoomID),
	}
}

func (g *Graph) checkMutable(subject string) error {
	if g.frozen {
		return domain.NewSetupError(subject, "graph is frozen", nil)
	}
	return nil
}

// AddNode добавляет комнату. Повтор идентификатора - ошибка настройки.
func (g *Graph) AddNode(n Node) error {
	if err := g.checkMutable(string(n.ID)); err != nil {
		return err
	}
	if n.ID == domain.NoRoom {
		return domain.NewSetupError("room", "empty id", nil)
	}
	if _, exists := g.nodes[n.ID]; exists {
		return domain.NewSetupError(string(n.ID), "duplicate room", nil)
	}
	node := n
	g.nodes[n.ID] = &node
	g.order = append(g.order, n.ID)
	g.adjSet[n.ID] = make(roomSet)
	return nil
}

// Link добавляет направленное ребро from -> to. Смежность не обязана быть симметричной.
func (g *Graph) Link(from, to domain.RoomID) error {
	if err := g.checkMutable(fmt.Sprintf("%s->%s", from, to)); err != nil {
		return err
	}
	if _, ok := g.nodes[from]; !ok {
		return domain.NewSetupError(string(from), "unknown room", nil)
	}
	if _, ok := g.nodes[to]; !ok {
		return domain.NewSetupError(string(to), "unknown room", nil)
	}
	if from == to {
		return nil
	}
	if _, dup := g.adjSet[from][to]; dup {
		return nil
	}
	g.adjSet[from][to] = struct{}{}
	g.adj[from] = append(g.adj[from], to)
	return nil
}

// Connect связывает две комнаты в обе стороны.
func (g *Graph) Connect(a, b domain.RoomID) error {
	if err := g.Link(a, b); err != nil {
		return err
	}
	return g.Link(b, a)
}

// SetFar задает множество дальних соседей явно, вместо расчета по радиусу.
func (g *Graph) SetFar(id domain.RoomID, far []domain.RoomID) error {
	if err := g.checkMutable(string(id)); err != nil {
		return err
	}
	if _, ok := g.nodes[id]; !ok {
		return domain.NewSetupError(string(id), "unknown room", nil)
	}
	for _, f := range far {
		if _, ok := g.nodes[f]; !ok {
			return domain.NewSetupError(string(f), "unknown far room", nil)
		}
	}
	g.explicitFar[id] = append([]domain.RoomID(nil), far...)
	return nil
}

// Freeze считает дальних соседей и запрещает дальнейшие изменения.
func (g *Graph) Freeze() {
	if g.frozen {
		return
	}
	for _, id := range g.order {
		if explicit, ok := g.explicitFar[id]; ok {
			g.far[id] = explicit
			continue
		}
		g.far[id] = g.withinHops(id, g.farRadius)
	}
	g.frozen = true
}

// withinHops - BFS на глубину hops, без самой комнаты, в порядке обнаружения.
func (g *Graph) withinHops(start domain.RoomID, hops int) []domain.RoomID {
	visited := roomSet{start: {}}
	frontier := []domain.RoomID{start}
	var out []domain.RoomID

	for depth := 0; depth < hops && len(frontier) > 0; depth++ {
		var next []domain.RoomID
		for _, cur := range frontier {
			for _, nb := range g.adj[cur] {
				if _, seen := visited[nb]; seen {
					continue
				}
				visited[nb] = struct{}{}
				out = append(out, nb)
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return out
}

func (g *Graph) Frozen() bool { return g.frozen }

func (g *Graph) FarRadius() int { return g.farRadius }

func (g *Graph) Len() int { return len(g.order) }

// Node возвращает комнату по идентификатору.
func (g *Graph) Node(id domain.RoomID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes - все комнаты в порядке добавления.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Neighbors - смежные комнаты в порядке добавления ребер.
func (g *Graph) Neighbors(id domain.RoomID) []domain.RoomID {
	return g.adj[id]
}

// FarNeighbors - комнаты в радиусе farRadius (или заданные явно). До Freeze пусто.
func (g *Graph) FarNeighbors(id domain.RoomID) []domain.RoomID {
	return g.far[id]
}

// IsNeighbor - O(1) проверка ребра from -> to.
func (g *Graph) IsNeighbor(from, to domain.RoomID) bool {
	_, ok := g.adjSet[from][to]
	return ok
}

// RoomAt находит комнату, чьи границы содержат точку. NoRoom, если таких нет.
func (g *Graph) RoomAt(p domain.Vec3) domain.RoomID {
	for _, id := range g.order {
		if g.nodes[id].Bounds.Contains(p) {
			return id
		}
	}
	return domain.NoRoom
}
