package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/network"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/api"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

const leaveTimeout = time.Second

// Commander - та часть движка, которой пользуется бот.
type Commander interface {
	Join(ctx context.Context, sub domain.SubscriberID) error
	Leave(ctx context.Context, sub domain.SubscriberID) error
	Submit(ctx context.Context, cmd domain.InternalCommand) error
}

// Bot представляет собой "Клиента-компьютера" (Headless Agent).
// Подключается к хабу так же, как WebSocket-клиент, и собирает
// свою копию мира только из кадров репликации.
//
// Жизненный цикл:
//  1. NewBot -> Регистрация в хабе, получение личного канала (Inbox).
//  2. Run -> Join в движке, чтение Inbox до закрытия канала или отмены контекста.
//  3. MoveTo / EnterRoom -> команды от имени бота.
type Bot struct {
	ID     domain.SubscriberID
	Mirror *Mirror
	Inbox  chan []byte

	hub    *network.Hub
	engine Commander
	log    *logrus.Entry
}

func NewBot(id domain.SubscriberID, hub *network.Hub, engine Commander) *Bot {
	return &Bot{
		ID:     id,
		Mirror: NewMirror(),
		// Бот регистрируется в хабе как обычный клиент и получает свой канал для обновлений.
		Inbox:  hub.Register(id),
		hub:    hub,
		engine: engine,
		log:    logger.For("bot").WithField("subscriber", id),
	}
}

// Run запускает цикл жизни бота. Должен быть запущен в горутине.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.engine.Join(ctx, b.ID); err != nil {
		b.hub.Unregister(b.ID, b.Inbox)
		return err
	}
	defer func() {
		// Контекст уже может быть отменен, уход все равно нужно доставить.
		leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
		defer cancel()
		_ = b.engine.Leave(leaveCtx, b.ID)
		b.hub.Unregister(b.ID, b.Inbox)
	}()

	for {
		select {
		case <-ctx.Done():
			b.log.Debug("Agent stopped")
			return nil
		case frame, ok := <-b.Inbox:
			if !ok {
				b.log.Debug("Inbox closed")
				return nil
			}
			b.Consume(frame)
		}
	}
}

// Consume применяет один кадр. Ошибки кадра логируются, цикл не прерывается.
func (b *Bot) Consume(frame []byte) {
	if err := b.Mirror.Apply(frame); err != nil {
		b.log.WithError(err).Warn("Bad frame")
	}
}

// Drain применяет все уже пришедшие кадры без блокировки.
func (b *Bot) Drain() int {
	n := 0
	for {
		select {
		case frame, ok := <-b.Inbox:
			if !ok {
				return n
			}
			b.Consume(frame)
			n++
		default:
			return n
		}
	}
}

// --- Хелперы для отправки команд на сервер ---

func (b *Bot) sendCommand(ctx context.Context, action domain.ActionType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.engine.Submit(ctx, domain.InternalCommand{
		Action:     action,
		Subscriber: b.ID,
		Payload:    payloadBytes,
	})
}

// MoveTo сообщает мировую позицию бота.
func (b *Bot) MoveTo(ctx context.Context, pos domain.Vec3) error {
	return b.sendCommand(ctx, domain.ActionPosition, api.PositionPayload{X: pos.X, Y: pos.Y, Z: pos.Z})
}

// EnterRoom сообщает комнату напрямую.
func (b *Bot) EnterRoom(ctx context.Context, room domain.RoomID) error {
	return b.sendCommand(ctx, domain.ActionRoom, api.RoomPayload{Room: string(room)})
}
