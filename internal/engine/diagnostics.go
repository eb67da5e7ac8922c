package engine

import (
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/pathlights"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/replication"
)

// GroupInfo - состояние одной группы интереса.
type GroupInfo struct {
	Room        domain.RoomID          `json:"room"`
	Objects     int                    `json:"objects"`
	Subscribers []domain.SubscriberID  `json:"subscribers"`
	Pending     int                    `json:"pending"`
	Stats       replication.GroupStats `json:"stats"`
}

// ClientInfo - состояние одного клиента.
type ClientInfo struct {
	ID     domain.SubscriberID `json:"id"`
	Room   domain.RoomID       `json:"room"`
	Groups []domain.RoomID     `json:"groups"`
}

// Diagnostics - снимок движка для /debug.
type Diagnostics struct {
	Tick    uint64                              `json:"tick"`
	Objects int                                 `json:"objects"`
	Groups  []GroupInfo                         `json:"groups"`
	Clients []ClientInfo                        `json:"clients"`
	Lights  []pathlights.LightInfo              `json:"lights"`
	Tasks   map[string][]map[string]interface{} `json:"tasks"`
}

// Diagnose собирает диагностику. Только из горутины тика (или в тестах без Run).
func (e *Engine) Diagnose() Diagnostics {
	d := Diagnostics{
		Tick:    e.tick,
		Objects: e.registry.Len(),
		Groups:  make([]GroupInfo, 0),
		Clients: make([]ClientInfo, 0),
		Lights:  e.lights.Lights(),
		Tasks: map[string][]map[string]interface{}{
			"animation": e.anim.DebugDump(),
			"periodic":  e.periodic.DebugDump(),
		},
	}
	for _, g := range e.registry.Groups() {
		d.Groups = append(d.Groups, GroupInfo{
			Room:        g.Room(),
			Objects:     g.ObjectCount(),
			Subscribers: g.Subscribers(),
			Pending:     g.PendingCount(),
			Stats:       g.Stats(),
		})
	}
	for _, sub := range e.subs.Clients() {
		d.Clients = append(d.Clients, ClientInfo{
			ID:     sub,
			Room:   e.rooms[sub],
			Groups: e.subs.Desired(sub),
		})
	}
	return d
}
