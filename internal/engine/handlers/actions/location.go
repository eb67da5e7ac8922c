package actions

import (
	"fmt"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/engine/handlers"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/api"
)

// HandlePosition находит комнату по мировой позиции клиента.
// Позиция вне всех комнат - это NoRoom, клиент выпадет из всех групп.
func HandlePosition(ctx handlers.Context, p api.PositionPayload) (handlers.Result, error) {
	room := ctx.Graph.RoomAt(domain.Vec3{X: p.X, Y: p.Y, Z: p.Z})
	ctx.Locations.SetRoom(ctx.Subscriber, room)
	return handlers.Result{Room: room}, nil
}

// HandleRoom принимает явно указанную комнату.
func HandleRoom(ctx handlers.Context, p api.RoomPayload) (handlers.Result, error) {
	room := domain.RoomID(p.Room)
	if _, ok := ctx.Graph.Node(room); !ok {
		return handlers.EmptyResult(), fmt.Errorf("unknown room %q", p.Room)
	}
	ctx.Locations.SetRoom(ctx.Subscriber, room)
	return handlers.Result{Room: room}, nil
}
