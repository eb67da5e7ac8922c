package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSetup - объект не может быть зарегистрирован (нет шаблона, комнаты, компонента).
	ErrSetup = errors.New("setup error")
	// ErrStaleReference - ссылка на объект или клиента, которые уже уничтожены.
	ErrStaleReference = errors.New("stale reference")
	// ErrTransport - отправка кадра не удалась. Повтора нет.
	ErrTransport = errors.New("transport error")
	// ErrGraphInconsistency - граф не соответствует ожиданиям (узел без объекта и т.п.).
	ErrGraphInconsistency = errors.New("graph inconsistency")
	// ErrNoBaseline - для пары объект/подписчик нет базового снимка.
	ErrNoBaseline = errors.New("no baseline")
)

// SetupError - фатальная для конкретного объекта ошибка инициализации.
type SetupError struct {
	Subject string
	Reason  string
	Err     error
}

func (e *SetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("setup %s: %s: %v", e.Subject, e.Reason, e.Err)
	}
	return fmt.Sprintf("setup %s: %s", e.Subject, e.Reason)
}

func (e *SetupError) Unwrap() error { return e.Err }

func (e *SetupError) Is(target error) bool { return target == ErrSetup }

// NewSetupError собирает SetupError с опциональной причиной.
func NewSetupError(subject, reason string, cause error) error {
	return &SetupError{Subject: subject, Reason: reason, Err: cause}
}

// StaleReferenceError - операция над уничтоженным объектом. Пропускается, пакет продолжается.
type StaleReferenceError struct {
	Ref string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale reference %s", e.Ref)
}

func (e *StaleReferenceError) Is(target error) bool { return target == ErrStaleReference }

// TransportError - отправка подписчику не удалась.
type TransportError struct {
	Subscriber SubscriberID
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Subscriber, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// GraphInconsistency - нефатальная аномалия графа во время обхода.
type GraphInconsistency struct {
	Room   RoomID
	Detail string
}

func (e *GraphInconsistency) Error() string {
	return fmt.Sprintf("graph inconsistency at %q: %s", e.Room, e.Detail)
}

func (e *GraphInconsistency) Is(target error) bool { return target == ErrGraphInconsistency }
