package domain

import "strings"

// ActionType - команда клиента, пришедшая по WebSocket.
type ActionType uint8

const (
	ActionUnknown ActionType = iota
	ActionHello
	ActionPosition
	ActionRoom
)

// Маппинг для конвертации JSON -> Domain
var actionStringToCmd = map[string]ActionType{
	"HELLO":    ActionHello,
	"POSITION": ActionPosition,
	"ROOM":     ActionRoom,
}

// Маппинг для логов Domain -> String
var actionCmdToString = map[ActionType]string{
	ActionHello:    "HELLO",
	ActionPosition: "POSITION",
	ActionRoom:     "ROOM",
}

// ParseAction конвертирует строку из JSON в ActionType
func ParseAction(s string) ActionType {
	// Делаем нечувствительным к регистру для надежности
	upper := strings.ToUpper(s)
	if val, ok := actionStringToCmd[upper]; ok {
		return val
	}
	return ActionUnknown
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (a ActionType) String() string {
	if val, ok := actionCmdToString[a]; ok {
		return val
	}
	return "UNKNOWN"
}
