// Package network - исходящие очереди клиентов. Реализует replication.Transport.
package network

import (
	"errors"
	"sync"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

var (
	// ErrNoSubscriber - у клиента нет очереди (не подключен или уже ушел).
	ErrNoSubscriber = errors.New("subscriber not registered")
	// ErrQueueFull - клиент не успевает читать.
	ErrQueueFull = errors.New("outbound queue full")
	// ErrAlreadyConnected - у подписчика уже есть очередь.
	ErrAlreadyConnected = errors.New("subscriber already connected")
)

// DefaultQueueSize - емкость личной очереди по умолчанию.
const DefaultQueueSize = 256

// Hub занимается только доставкой кадров в личные очереди подписчиков
type Hub struct {
	mu        sync.RWMutex
	queueSize int
	// Мапа: SubscriberID -> Личный канал
	subscribers map[domain.SubscriberID]chan []byte
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		queueSize:   queueSize,
		subscribers: make(map[domain.SubscriberID]chan []byte),
	}
}

// Register создает личный канал для клиента (игрока или бота)
func (h *Hub) Register(sub domain.SubscriberID) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := h.subscribers[sub]; ok {
		close(old)
	}

	ch := make(chan []byte, h.queueSize)
	h.subscribers[sub] = ch
	return ch
}

// TryRegister создает очередь только для нового подписчика.
// Проверка и регистрация выполняются под одной блокировкой.
func (h *Hub) TryRegister(sub domain.SubscriberID) (chan []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; ok {
		return nil, ErrAlreadyConnected
	}
	ch := make(chan []byte, h.queueSize)
	h.subscribers[sub] = ch
	return ch, nil
}

// Unregister удаляет подписчика, если его очередь все еще ch.
// ch == nil удаляет безусловно.
func (h *Hub) Unregister(sub domain.SubscriberID, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.subscribers[sub]
	if !ok || (ch != nil && cur != ch) {
		return
	}
	close(cur)
	delete(h.subscribers, sub)
}

// Send кладет кадр в очередь клиента без блокировки.
// Полная или отсутствующая очередь - TransportError, повтора нет.
func (h *Hub) Send(sub domain.SubscriberID, frame []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.subscribers[sub]
	if !ok {
		return &domain.TransportError{Subscriber: sub, Err: ErrNoSubscriber}
	}
	select {
	case ch <- frame:
		return nil
	default:
		return &domain.TransportError{Subscriber: sub, Err: ErrQueueFull}
	}
}

// HasSubscriber проверяет, есть ли очередь у клиента
func (h *Hub) HasSubscriber(sub domain.SubscriberID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subscribers[sub]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
