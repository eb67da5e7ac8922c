package engine

import (
	"context"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/engine/handlers"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/engine/handlers/actions"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/pathlights"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/replication"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/scheduler"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/spatial"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

// TickStats - что произошло за один тик.
type TickStats struct {
	Tick      uint64
	Inbox     int
	AnimSteps int
	Changed   int
	Frames    int
	Refreshes int
}

// Engine - однопоточный цикл тиков подсистемы репликации.
//
// Фазы тика: 0 - входящие (подключения, команды, события), 1 - шаги анимации
// (все мутации), 2 - обнаружение изменений, 3 - рассылка, 4 - периодические задачи
// (пересчет подписок). Все состояние меняется только из горутины тика.
type Engine struct {
	cfg      Config
	graph    *spatial.Graph
	registry *replication.Registry
	subs     *replication.SubscriptionManager
	lights   *pathlights.Controller
	policy   pathlights.Policy

	anim     *scheduler.Scheduler
	periodic *scheduler.Scheduler

	handlers map[domain.ActionType]handlers.HandlerFunc
	rooms    map[domain.SubscriberID]domain.RoomID

	// Единая очередь входящих: порядок Join -> команды -> Leave сохраняется.
	inbox chan inboxItem

	tick uint64
	now  time.Time
	log  *logrus.Entry
}

// New собирает движок поверх замороженного графа. transport доставляет кадры клиентам.
func New(cfg Config, graph *spatial.Graph, transport replication.Transport) *Engine {
	if cfg.InboxSize < 1 {
		cfg.InboxSize = NewConfig().InboxSize
	}
	graph.Freeze()
	registry := replication.NewRegistry(cfg.ShardID, graph, transport)
	anim := scheduler.New("animation")

	e := &Engine{
		cfg:      cfg,
		graph:    graph,
		registry: registry,
		anim:     anim,
		periodic: scheduler.New("periodic"),
		handlers: make(map[domain.ActionType]handlers.HandlerFunc),
		rooms:    make(map[domain.SubscriberID]domain.RoomID),

		inbox: make(chan inboxItem, cfg.InboxSize),

		log: logger.For("engine"),
	}
	e.subs = replication.NewSubscriptionManager(registry, replication.LocatorFunc(e.CurrentRoom))
	e.lights = pathlights.NewController(pathlights.Config{
		SettleDelay:   cfg.SettleDelay,
		PhaseDuration: cfg.PhaseDuration,
		PhaseCount:    cfg.PhaseCount,
		SeedColor:     pathlights.DefaultConfig().SeedColor,
		PathColor:     pathlights.DefaultConfig().PathColor,
	}, registry, anim)
	e.policy = pathlights.Policy{
		EvacuationPhase: cfg.EvacuationPhase,
		LockdownPhase:   cfg.LockdownPhase,
		CheckpointSeeds: pathlights.SeedRooms(graph, cfg.CheckpointKind),
		ExitSeeds:       pathlights.SeedRooms(graph, cfg.ExitKind),
	}

	e.registerHandlers()
	e.periodic.Schedule("subscriptions.refresh", time.Time{}, e.refreshSubscriptions)
	return e
}

func (e *Engine) registerHandlers() {
	e.handlers[domain.ActionPosition] = handlers.WithPayload(actions.HandlePosition)
	e.handlers[domain.ActionRoom] = handlers.WithPayload(actions.HandleRoom)
}

func (e *Engine) Config() Config                                  { return e.cfg }
func (e *Engine) Graph() *spatial.Graph                           { return e.graph }
func (e *Engine) Registry() *replication.Registry                 { return e.registry }
func (e *Engine) Lights() *pathlights.Controller                  { return e.lights }
func (e *Engine) Subscriptions() *replication.SubscriptionManager { return e.subs }

// CurrentRoom реализует Locator для менеджера подписок.
func (e *Engine) CurrentRoom(sub domain.SubscriberID) domain.RoomID {
	return e.rooms[sub]
}

// SetRoom реализует handlers.LocationStore.
func (e *Engine) SetRoom(sub domain.SubscriberID, room domain.RoomID) {
	if _, ok := e.rooms[sub]; !ok {
		return // клиент уже ушел
	}
	e.rooms[sub] = room
}

// Spawn создает объект. Вызывается до Run или из горутины тика.
func (e *Engine) Spawn(req replication.SpawnRequest) (*replication.Object, error) {
	o, err := e.registry.Spawn(req)
	if err != nil {
		e.log.WithError(err).WithField("room", req.Room).Error("Spawn failed, object disabled")
		return nil, err
	}
	e.lights.Track()
	e.subs.Invalidate()
	return o, nil
}

// --- Вход из других горутин ---

type inboxKind uint8

const (
	inboxJoin inboxKind = iota
	inboxLeave
	inboxCommand
	inboxTrigger
	inboxInspect
)

type inboxItem struct {
	kind    inboxKind
	sub     domain.SubscriberID
	cmd     domain.InternalCommand
	trigger domain.Trigger
	reply   chan Diagnostics
}

func (e *Engine) enqueue(ctx context.Context, it inboxItem) error {
	select {
	case e.inbox <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join ставит подключение клиента в очередь тика.
func (e *Engine) Join(ctx context.Context, sub domain.SubscriberID) error {
	return e.enqueue(ctx, inboxItem{kind: inboxJoin, sub: sub})
}

// Leave ставит отключение клиента в очередь тика.
func (e *Engine) Leave(ctx context.Context, sub domain.SubscriberID) error {
	return e.enqueue(ctx, inboxItem{kind: inboxLeave, sub: sub})
}

// Submit передает разобранную команду клиента.
func (e *Engine) Submit(ctx context.Context, cmd domain.InternalCommand) error {
	return e.enqueue(ctx, inboxItem{kind: inboxCommand, cmd: cmd})
}

// Trigger передает внешнее событие раунда.
func (e *Engine) Trigger(ctx context.Context, t domain.Trigger) error {
	return e.enqueue(ctx, inboxItem{kind: inboxTrigger, trigger: t})
}

// Inspect возвращает диагностику, собранную в горутине тика.
func (e *Engine) Inspect(ctx context.Context) (Diagnostics, error) {
	reply := make(chan Diagnostics, 1)
	if err := e.enqueue(ctx, inboxItem{kind: inboxInspect, reply: reply}); err != nil {
		return Diagnostics{}, err
	}
	select {
	case d := <-reply:
		return d, nil
	case <-ctx.Done():
		return Diagnostics{}, ctx.Err()
	}
}

// --- Цикл ---

// Run крутит тики до отмены контекста.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.WithFields(logrus.Fields{
		"tick_rate": e.cfg.TickRate,
		"rooms":     e.graph.Len(),
		"objects":   e.registry.Len(),
	}).Info("Engine loop started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info("Engine loop stopped")
			return nil
		case now := <-ticker.C:
			st := e.Tick(now)
			if st.Frames > 0 {
				e.log.WithFields(logrus.Fields{
					"tick":   st.Tick,
					"frames": st.Frames,
				}).Trace("Tick flushed")
			}
		}
	}
}

// Tick выполняет один тик. Отдельно от Run для детерминированных тестов.
func (e *Engine) Tick(now time.Time) TickStats {
	e.tick++
	e.now = now
	st := TickStats{Tick: e.tick}

	// 0. Входящие
	st.Inbox = e.drainInbox(now)

	// 1. Мутации
	st.AnimSteps = e.anim.RunDue(now)

	// 2. Сравнение
	st.Changed = e.registry.Detect()

	// 3. Отправка
	st.Frames = e.registry.Flush().Frames

	// 4. Периодические задачи
	st.Refreshes = e.periodic.RunDue(now)

	return st
}

func (e *Engine) drainInbox(now time.Time) int {
	// Только то, что уже лежит в очереди: новые элементы ждут следующего тика.
	n := len(e.inbox)
	for i := 0; i < n; i++ {
		it := <-e.inbox
		switch it.kind {
		case inboxJoin:
			e.addSubscriber(it.sub)
		case inboxLeave:
			e.removeSubscriber(it.sub)
		case inboxCommand:
			e.executeCommand(it.cmd)
		case inboxTrigger:
			e.lights.HandleTrigger(e.policy, it.trigger, now)
		case inboxInspect:
			it.reply <- e.Diagnose()
		}
	}
	return n
}

func (e *Engine) addSubscriber(sub domain.SubscriberID) {
	if _, ok := e.rooms[sub]; ok {
		return
	}
	e.rooms[sub] = domain.NoRoom
	e.subs.Connect(sub)
	e.log.WithField("subscriber", sub).Info("Subscriber joined")
}

func (e *Engine) removeSubscriber(sub domain.SubscriberID) {
	if _, ok := e.rooms[sub]; !ok {
		return
	}
	e.subs.Disconnect(sub)
	delete(e.rooms, sub)
	e.log.WithField("subscriber", sub).Info("Subscriber left")
}

// executeCommand выполняет команду клиента
func (e *Engine) executeCommand(cmd domain.InternalCommand) {
	log := e.log.WithFields(logrus.Fields{
		"subscriber": cmd.Subscriber,
		"action":     cmd.Action,
	})

	if _, ok := e.rooms[cmd.Subscriber]; !ok {
		log.WithError(&domain.StaleReferenceError{Ref: string(cmd.Subscriber)}).Debug("Command from unknown subscriber")
		return
	}
	handler, ok := e.handlers[cmd.Action]
	if !ok {
		log.Warn("No handler for action")
		return
	}

	res, err := handler(handlers.Context{
		Graph:      e.graph,
		Locations:  e,
		Subscriber: cmd.Subscriber,
	}, cmd.Payload)
	if err != nil {
		log.WithError(err).Warn("Command rejected")
		return
	}
	log.WithField("room", res.Room).Debug("Location updated")
}

func (e *Engine) refreshSubscriptions(time.Time) (time.Duration, bool) {
	st := e.subs.Refresh()
	if st.Subscribed > 0 || st.Unsubscribed > 0 {
		e.log.WithFields(logrus.Fields{
			"checked":      st.Checked,
			"subscribed":   st.Subscribed,
			"unsubscribed": st.Unsubscribed,
		}).Debug("Subscriptions refreshed")
	}
	return e.cfg.SubscriptionPeriod, false
}
