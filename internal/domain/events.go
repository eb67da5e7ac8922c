package domain

import (
	"fmt"
	"strings"
)

// TriggerKind - внешнее игровое событие, управляющее путевыми огнями.
type TriggerKind uint8

const (
	TriggerUnknown TriggerKind = iota
	TriggerRoundStarted
	TriggerDecontaminationPhase
	TriggerWarheadStarting
	TriggerWarheadStopping
	TriggerWarheadDetonated
)

// Маппинг для конвертации JSON -> Domain
var triggerStringToKind = map[string]TriggerKind{
	"ROUND_STARTED":     TriggerRoundStarted,
	"DECONTAMINATION":   TriggerDecontaminationPhase,
	"WARHEAD_STARTING":  TriggerWarheadStarting,
	"WARHEAD_STOPPING":  TriggerWarheadStopping,
	"WARHEAD_DETONATED": TriggerWarheadDetonated,
}

// Маппинг для логов Domain -> String
var triggerKindToString = map[TriggerKind]string{
	TriggerRoundStarted:         "ROUND_STARTED",
	TriggerDecontaminationPhase: "DECONTAMINATION",
	TriggerWarheadStarting:      "WARHEAD_STARTING",
	TriggerWarheadStopping:      "WARHEAD_STOPPING",
	TriggerWarheadDetonated:     "WARHEAD_DETONATED",
}

// ParseTrigger конвертирует строку в TriggerKind
func ParseTrigger(s string) TriggerKind {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if val, ok := triggerStringToKind[upper]; ok {
		return val
	}
	return TriggerUnknown
}

func (k TriggerKind) String() string {
	if val, ok := triggerKindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}

// Trigger - одно событие от внешнего источника.
// Allowed=false означает, что событие отменено выше по цепочке и не должно обрабатываться.
type Trigger struct {
	Kind    TriggerKind `json:"kind"`
	Phase   int         `json:"phase,omitempty"`
	Allowed bool        `json:"allowed"`
}

func (t Trigger) String() string {
	if t.Kind == TriggerDecontaminationPhase {
		return fmt.Sprintf("%s(%d) allowed=%t", t.Kind, t.Phase, t.Allowed)
	}
	return fmt.Sprintf("%s allowed=%t", t.Kind, t.Allowed)
}
