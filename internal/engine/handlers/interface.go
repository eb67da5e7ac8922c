package handlers

import (
	"encoding/json"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/spatial"
)

// LocationStore хранит текущую комнату каждого клиента.
// Engine неявно реализует этот интерфейс.
type LocationStore interface {
	SetRoom(sub domain.SubscriberID, room domain.RoomID)
}

// Context передает хендлеру граф и того, кто прислал команду.
type Context struct {
	Graph      *spatial.Graph
	Locations  LocationStore
	Subscriber domain.SubscriberID
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет в логи напрямую, он возвращает данные.
type Result struct {
	Room domain.RoomID // Комната клиента после команды
}

// HandlerFunc - это контракт для любой команды (POSITION, ROOM).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}
