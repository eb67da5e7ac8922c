// Package pathlights размечает путевые огни направлениями и анимирует их.
package pathlights

import (
	"math"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/replication"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/spatial"
)

// GridStep - шаг сетки, к которой привязываются координаты перед сравнением.
const GridStep = 5

// ObjectLookup находит путевые огни комнаты.
type ObjectLookup func(room domain.RoomID) []*replication.Object

// Assignment - результат одного прогона разметки.
type Assignment struct {
	Labels map[types.ObjectID]domain.Label
	Rooms  map[domain.RoomID]domain.Label
	// Issues - нефатальные аномалии графа, обход из-за них не прерывается.
	Issues []error
}

func snap(v float32) float64 {
	f := float64(v)
	return f - math.Mod(f, GridStep)
}

// directionLabel - метка соседа относительно родителя: сначала X, затем Z.
// Сосед с большей координатой получает "плюс", с меньшей - "минус".
// Если после привязки к сетке оси совпадают - LabelNone.
func directionLabel(parent, nb *spatial.Node) domain.Label {
	px, nx := snap(parent.Position.X), snap(nb.Position.X)
	switch {
	case nx > px:
		return domain.LabelPlusX
	case nx < px:
		return domain.LabelMinusX
	}

	pz, nz := snap(parent.Position.Z), snap(nb.Position.Z)
	switch {
	case nz > pz:
		return domain.LabelPlusZ
	case nz < pz:
		return domain.LabelMinusZ
	}
	return domain.LabelNone
}

// AssignLabels - многоисточниковый BFS от seeds. Комнаты-источники и особые комнаты
// получают Seed, остальные - направление к родителю. Узел размечается один раз:
// первая удачная разметка в его раунде побеждает, посещенные узлы не пересматриваются.
// Комнаты без огней не размечают объектов, но обход через них продолжается.
func AssignLabels(g *spatial.Graph, seeds []domain.RoomID, lookup ObjectLookup) Assignment {
	out := Assignment{
		Labels: make(map[types.ObjectID]domain.Label),
		Rooms:  make(map[domain.RoomID]domain.Label),
	}

	discovered := make(map[domain.RoomID]int)
	var order []domain.RoomID
	var frontier []domain.RoomID

	for _, id := range seeds {
		if _, ok := g.Node(id); !ok {
			out.Issues = append(out.Issues, &domain.GraphInconsistency{Room: id, Detail: "unknown seed room"})
			continue
		}
		if _, seen := discovered[id]; seen {
			continue
		}
		discovered[id] = 0
		out.Rooms[id] = domain.LabelSeed
		order = append(order, id)
		frontier = append(frontier, id)
	}

	for round := 1; len(frontier) > 0; round++ {
		var next []domain.RoomID
		for _, parentID := range frontier {
			parent, _ := g.Node(parentID)
			for _, nbID := range g.Neighbors(parentID) {
				r, seen := discovered[nbID]
				if seen && r < round {
					continue
				}
				if !seen {
					discovered[nbID] = round
					order = append(order, nbID)
					next = append(next, nbID)
				}
				if _, labeled := out.Rooms[nbID]; labeled {
					continue
				}

				nb, _ := g.Node(nbID)
				label := domain.LabelSeed
				if !nb.Special {
					label = directionLabel(parent, nb)
				}
				if label != domain.LabelNone {
					out.Rooms[nbID] = label
				}
			}
		}
		frontier = next
	}

	for _, room := range order {
		label, ok := out.Rooms[room]
		if !ok {
			continue
		}
		objs := lookup(room)
		if len(objs) == 0 {
			out.Issues = append(out.Issues, &domain.GraphInconsistency{Room: room, Detail: "no path light in room"})
			continue
		}
		for _, o := range objs {
			out.Labels[o.ID()] = label
		}
	}
	return out
}

// SeedRooms возвращает комнаты заданного вида в порядке графа.
func SeedRooms(g *spatial.Graph, kind string) []domain.RoomID {
	var out []domain.RoomID
	for _, n := range g.Nodes() {
		if n.Kind == kind {
			out = append(out, n.ID)
		}
	}
	return out
}
