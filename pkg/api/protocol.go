package api

import (
	"encoding/json"
)

// --- СЕРВЕР -> КЛИЕНТ ---
// Служебные сообщения идут внутри кадра wire.TagControl в msgpack.
// Кадры состояния объектов бинарные и описаны в internal/wire.

// Control типы служебных сообщений.
const (
	ControlWelcome = "WELCOME"
	ControlError   = "ERROR"
	ControlRoom    = "ROOM"
)

// ControlMessage это корневой объект служебного кадра.
type ControlMessage struct {
	// Type одно из Control* значений.
	Type string `msgpack:"type" json:"type"`

	// Subscriber идентификатор, под которым сервер знает клиента.
	Subscriber string `msgpack:"subscriber,omitempty" json:"subscriber,omitempty"`

	// WireVersion версия бинарного протокола, которую клиент должен уметь читать.
	WireVersion uint8 `msgpack:"wireVersion,omitempty" json:"wireVersion,omitempty"`

	// TickRate частота тиков сервера (Гц), для интерполяции на клиенте.
	TickRate int `msgpack:"tickRate,omitempty" json:"tickRate,omitempty"`

	// Room текущая комната клиента по мнению сервера (для ROOM).
	Room string `msgpack:"room,omitempty" json:"room,omitempty"`

	// Error текст ошибки (для ERROR).
	Error string `msgpack:"error,omitempty" json:"error,omitempty"`
}

// --- КЛИЕНТ -> СЕРВЕР ---

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Action название действия: HELLO, POSITION, ROOM.
	Action string `json:"action"`

	// Payload JSON-объект с данными для действия. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload"`
}

// --- Payloads ---

// HelloPayload первое сообщение клиента. Token - подписанный JWT или пусто в dev-режиме.
type HelloPayload struct {
	Token string `json:"token"`
}

// PositionPayload мировая позиция клиента, сервер сам находит комнату.
type PositionPayload struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// RoomPayload явное указание комнаты (клиенты, которые знают граф).
type RoomPayload struct {
	Room string `json:"room"`
}

// TriggerPayload внешнее событие раунда для /debug/trigger.
type TriggerPayload struct {
	Kind    string `json:"kind"`
	Phase   int    `json:"phase,omitempty"`
	Allowed *bool  `json:"allowed,omitempty"`
}
