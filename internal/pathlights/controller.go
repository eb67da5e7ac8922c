package pathlights

import (
	"fmt"
	"sort"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/replication"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/scheduler"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

// State - участие огня в анимации.
type State uint8

const (
	StateIdle State = iota
	StateArmed
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "ARMED"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Config - параметры анимации.
type Config struct {
	SettleDelay   time.Duration // пауза между разметкой и запуском
	PhaseDuration time.Duration // длительность одного цикла
	PhaseCount    int           // фаз в пульсации яркости
	SeedColor     domain.Color
	PathColor     domain.Color
}

// DefaultConfig - значения по умолчанию.
func DefaultConfig() Config {
	return Config{
		SettleDelay:   500 * time.Millisecond,
		PhaseDuration: 250 * time.Millisecond,
		PhaseCount:    4,
		SeedColor:     domain.Color{G: 1, A: 1},
		PathColor:     domain.Color{R: 1, G: 0.55, A: 1},
	}
}

type light struct {
	obj   *replication.Object
	label domain.Label
	phase int
	state State
	task  scheduler.TaskID
}

// LightInfo - диагностика одного огня.
type LightInfo struct {
	ID      types.ObjectID `json:"id"`
	Room    domain.RoomID  `json:"room"`
	Label   domain.Label   `json:"label"`
	State   string         `json:"state"`
	Phase   int            `json:"phase"`
	Running bool           `json:"running"`
}

// Controller связывает разметку путей с циклами анимации.
//
// Running Set - единственный источник истины для циклов: каждый цикл в начале шага
// проверяет членство и завершается, если огня там больше нет.
type Controller struct {
	cfg      Config
	registry *replication.Registry
	sched    *scheduler.Scheduler
	log      *logrus.Entry

	tracked map[types.ObjectID]*light
	running map[types.ObjectID]struct{}

	epoch  uint64
	settle scheduler.TaskID
}

// NewController создает контроллер. Планировщик общий с движком (фаза анимации).
func NewController(cfg Config, registry *replication.Registry, sched *scheduler.Scheduler) *Controller {
	if cfg.PhaseCount < 1 {
		cfg.PhaseCount = 1
	}
	return &Controller{
		cfg:      cfg,
		registry: registry,
		sched:    sched,
		log:      logger.For("pathlights"),
		tracked:  make(map[types.ObjectID]*light),
		running:  make(map[types.ObjectID]struct{}),
	}
}

// Track синхронизирует список отслеживаемых огней с реестром.
func (c *Controller) Track() int {
	seen := make(map[types.ObjectID]struct{})
	for _, g := range c.registry.Groups() {
		for _, o := range c.registry.ObjectsIn(g.Room(), enums.CategoryPathLight) {
			seen[o.ID()] = struct{}{}
			if _, ok := c.tracked[o.ID()]; !ok {
				c.tracked[o.ID()] = &light{obj: o}
			}
		}
	}
	for id := range c.tracked {
		if _, ok := seen[id]; !ok {
			delete(c.tracked, id)
			delete(c.running, id)
		}
	}
	return len(c.tracked)
}

func (c *Controller) lookup(room domain.RoomID) []*replication.Object {
	return c.registry.ObjectsIn(room, enums.CategoryPathLight)
}

// Activate размечает граф от seeds, останавливает текущие циклы и через SettleDelay
// запускает огни с новой меткой. Новый Activate или Clear отменяет отложенный запуск.
func (c *Controller) Activate(seeds []domain.RoomID, now time.Time) Assignment {
	c.Track()
	c.cancelSettle()
	c.running = make(map[types.ObjectID]struct{})

	asg := AssignLabels(c.registry.Graph(), seeds, c.lookup)
	for _, issue := range asg.Issues {
		c.log.WithError(issue).Debug("path assignment skipped room")
	}

	for id, l := range c.tracked {
		l.label = asg.Labels[id]
		if l.label != domain.LabelNone {
			l.state = StateArmed
		} else {
			l.state = StateIdle
		}
	}

	epoch := c.epoch
	c.settle = c.sched.After("pathlights.settle", now, c.cfg.SettleDelay, func(at time.Time) (time.Duration, bool) {
		if epoch != c.epoch {
			return 0, true
		}
		c.settle = 0
		c.start(asg.Labels, at)
		return 0, true
	})

	c.log.WithFields(logrus.Fields{
		"seeds":   len(seeds),
		"labeled": len(asg.Labels),
		"issues":  len(asg.Issues),
	}).Info("Path lights armed")
	return asg
}

// start - отложенная часть Activate.
func (c *Controller) start(labels map[types.ObjectID]domain.Label, now time.Time) {
	ids := make([]types.ObjectID, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		label := labels[id]
		l, ok := c.tracked[id]
		if !ok || !l.obj.Alive() {
			c.log.WithError(&domain.StaleReferenceError{Ref: id.String()}).Debug("path light gone before start")
			continue
		}
		l.phase = 0
		l.label = label
		if l.label == domain.LabelNone {
			continue
		}
		c.running[id] = struct{}{}
		l.state = StateRunning
		if l.task == 0 || !c.sched.Has(l.task) {
			l.task = c.sched.Schedule(fmt.Sprintf("pathlights.cycle %s", id), now, c.cycle(id))
		}
	}
}

// Clear немедленно опустошает Running Set и сбрасывает метки. Идущий цикл доработает
// до своей границы и там завершится.
func (c *Controller) Clear() {
	c.cancelSettle()
	c.running = make(map[types.ObjectID]struct{})
	for _, l := range c.tracked {
		l.label = domain.LabelNone
		l.phase = 0
		l.state = StateIdle
	}
	c.log.Info("Path lights cleared")
}

func (c *Controller) cancelSettle() {
	c.epoch++
	if c.settle != 0 {
		c.sched.Cancel(c.settle)
		c.settle = 0
	}
}

// cycle - задача одного огня. Проверка членства только в начале шага.
func (c *Controller) cycle(id types.ObjectID) scheduler.Step {
	return func(time.Time) (time.Duration, bool) {
		l, ok := c.tracked[id]
		if !ok {
			return 0, true
		}
		binding := c.registry.BindingOf(l.obj)
		if _, run := c.running[id]; !run || !binding.Alive() {
			c.restore(binding)
			l.task = 0
			if l.state == StateRunning {
				l.state = StateIdle
			}
			return 0, true
		}

		c.animate(binding, l)
		l.phase = (l.phase + 1) % c.cfg.PhaseCount
		return c.cfg.PhaseDuration, false
	}
}

func (c *Controller) animate(b replication.Binding, l *light) {
	color := c.cfg.PathColor
	if l.label == domain.LabelSeed {
		color = c.cfg.SeedColor
	}
	pulse := float32(l.phase+1) / float32(c.cfg.PhaseCount)

	b.Apply(func(o *replication.Object) {
		base := o.Base()
		o.SetColor(color)
		if l.label.Directional() {
			o.SetRotation(domain.YawQuat(l.label.Yaw()))
		}
		o.SetIntensity(base.Intensity * pulse)
	})
}

// restore возвращает исходный внешний вид арматуры.
func (c *Controller) restore(b replication.Binding) {
	b.Apply(func(o *replication.Object) {
		base := o.Base()
		o.SetColor(base.Color)
		o.SetRotation(base.Rotation)
		o.SetIntensity(base.Intensity)
	})
}

// --- Диагностика ---

func (c *Controller) IsRunning(id types.ObjectID) bool {
	_, ok := c.running[id]
	return ok
}

func (c *Controller) RunningCount() int { return len(c.running) }

// Label - текущая метка огня.
func (c *Controller) Label(id types.ObjectID) domain.Label {
	if l, ok := c.tracked[id]; ok {
		return l.label
	}
	return domain.LabelNone
}

// StateOf - состояние огня в автомате Idle/Armed/Running.
func (c *Controller) StateOf(id types.ObjectID) State {
	if l, ok := c.tracked[id]; ok {
		return l.state
	}
	return StateIdle
}

// HasCycle - у огня есть запланированный цикл.
func (c *Controller) HasCycle(id types.ObjectID) bool {
	l, ok := c.tracked[id]
	return ok && l.task != 0 && c.sched.Has(l.task)
}

// Lights - все отслеживаемые огни по возрастанию идентификатора.
func (c *Controller) Lights() []LightInfo {
	out := make([]LightInfo, 0, len(c.tracked))
	for id, l := range c.tracked {
		_, run := c.running[id]
		out = append(out, LightInfo{
			ID:      id,
			Room:    l.obj.Room(),
			Label:   l.label,
			State:   l.state.String(),
			Phase:   l.phase,
			Running: run,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
