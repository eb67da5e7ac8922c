package domain

// SubscriberID - идентификатор подключенного клиента (sub из токена или сгенерированный UUID).
type SubscriberID string

// RoomID - стабильный идентификатор пространственного узла (комнаты).
type RoomID string

// NoRoom - клиент вне любой известной комнаты.
const NoRoom RoomID = ""

func (id SubscriberID) String() string { return string(id) }
func (id RoomID) String() string       { return string(id) }
