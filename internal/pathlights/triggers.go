package pathlights

import (
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/sirupsen/logrus"
)

// Policy - какие события включают и гасят путевые огни.
type Policy struct {
	EvacuationPhase int             // фаза обеззараживания, ведущая к КПП
	LockdownPhase   int             // фаза, на которой зона закрыта и огни гаснут
	CheckpointSeeds []domain.RoomID // источники при эвакуации
	ExitSeeds       []domain.RoomID // источники при запуске боеголовки
}

// Reaction - что сделал контроллер в ответ на событие.
type Reaction uint8

const (
	ReactionNone Reaction = iota
	ReactionActivated
	ReactionCleared
	ReactionDenied
)

func (r Reaction) String() string {
	switch r {
	case ReactionActivated:
		return "ACTIVATED"
	case ReactionCleared:
		return "CLEARED"
	case ReactionDenied:
		return "DENIED"
	default:
		return "NONE"
	}
}

// HandleTrigger применяет политику к событию. Отмененные выше по цепочке события игнорируются.
func (c *Controller) HandleTrigger(p Policy, t domain.Trigger, now time.Time) Reaction {
	log := c.log.WithFields(logrus.Fields{"trigger": t.Kind, "phase": t.Phase})
	if !t.Allowed {
		log.Debug("Trigger not allowed, ignoring")
		return ReactionDenied
	}

	var r Reaction
	switch t.Kind {
	case domain.TriggerRoundStarted:
		c.Clear()
		r = ReactionCleared
	case domain.TriggerDecontaminationPhase:
		switch t.Phase {
		case p.EvacuationPhase:
			c.Activate(p.CheckpointSeeds, now)
			r = ReactionActivated
		case p.LockdownPhase:
			c.Clear()
			r = ReactionCleared
		}
	case domain.TriggerWarheadStarting:
		c.Activate(p.ExitSeeds, now)
		r = ReactionActivated
	case domain.TriggerWarheadStopping, domain.TriggerWarheadDetonated:
		c.Clear()
		r = ReactionCleared
	}

	log.WithField("reaction", r).Debug("Trigger handled")
	return r
}
