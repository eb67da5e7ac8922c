package domain

import "encoding/json"

// InternalCommand - разобранная команда клиента для движка.
type InternalCommand struct {
	Action     ActionType
	Subscriber SubscriberID
	Payload    json.RawMessage // Сырые данные (парсятся хендлером)
}
