package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/network"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/wire"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/api"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var (
	ErrHandshake        = errors.New("first message must be HELLO")
	ErrAlreadyConnected = network.ErrAlreadyConnected
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и движком.
// Входящие - JSON-команды, исходящие - бинарные кадры из очереди хаба.
type Client struct {
	srv  *Server
	Conn *websocket.Conn
	Send chan []byte
	ID   domain.SubscriberID
	log  *logrus.Entry
}

func NewClient(srv *Server, conn *websocket.Conn) *Client {
	return &Client{
		srv:  srv,
		Conn: conn,
		log:  logger.For("client").WithField("remote", conn.RemoteAddr().String()),
	}
}

// handshake читает HELLO и определяет подписчика.
func (c *Client) handshake() (domain.SubscriberID, error) {
	var hello api.ClientCommand
	if err := c.Conn.ReadJSON(&hello); err != nil {
		return "", fmt.Errorf("read hello: %w", err)
	}
	if domain.ParseAction(hello.Action) != domain.ActionHello {
		return "", ErrHandshake
	}

	var p api.HelloPayload
	if len(hello.Payload) > 0 {
		if err := json.Unmarshal(hello.Payload, &p); err != nil {
			return "", fmt.Errorf("hello payload: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	return c.srv.Auth.Identify(p.Token)
}

// readPump читает команды от клиента
func (c *Client) readPump() {
	defer func() {
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// 1. HANDSHAKE
	sub, err := c.handshake()
	if err != nil {
		c.log.WithError(err).Warn("Handshake failed")
		c.writeDirect(api.ControlMessage{Type: api.ControlError, Error: err.Error()})
		return
	}
	c.ID = sub
	c.log = c.log.WithField("subscriber", sub)

	// 2. ПОДПИСКА НА КАДРЫ
	// Второе подключение того же подписчика отклоняется, старая сессия не трогается.
	send, err := c.srv.Hub.TryRegister(sub)
	if err != nil {
		c.log.WithError(err).Warn("Registration rejected")
		c.writeDirect(api.ControlMessage{Type: api.ControlError, Error: err.Error()})
		return
	}
	c.Send = send
	defer c.srv.Hub.Unregister(sub, c.Send)

	welcome, err := wire.EncodeControl(api.ControlMessage{
		Type:        api.ControlWelcome,
		Subscriber:  string(sub),
		WireVersion: wire.Version,
		TickRate:    c.srv.Engine.Config().TickRate,
	})
	if err == nil {
		err = c.srv.Hub.Send(sub, welcome)
	}
	if err != nil {
		c.log.WithError(err).Warn("Welcome failed")
		return
	}
	go c.writePump()

	if err := c.srv.Engine.Join(c.srv.ctx, sub); err != nil {
		c.log.WithError(err).Warn("Join failed")
		return
	}
	defer func() {
		if err := c.srv.Engine.Leave(c.srv.ctx, sub); err != nil {
			c.log.WithError(err).Debug("Leave not delivered")
		}
		c.log.Info("Client disconnected")
	}()
	c.log.Info("Client logged in")

	// 3. ЦИКЛ ЧТЕНИЯ КОМАНД
	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Error("WS error")
			}
			return
		}

		action := domain.ParseAction(cmd.Action)
		switch action {
		case domain.ActionUnknown, domain.ActionHello:
			c.reply(api.ControlMessage{Type: api.ControlError, Error: fmt.Sprintf("unexpected action %q", cmd.Action)})
			continue
		}

		err := c.srv.Engine.Submit(c.srv.ctx, domain.InternalCommand{
			Action:     action,
			Subscriber: sub,
			Payload:    cmd.Payload,
		})
		if err != nil {
			c.log.WithError(err).Warn("Submit failed")
			return
		}
	}
}

// reply кладет служебное сообщение в общую очередь клиента.
func (c *Client) reply(msg api.ControlMessage) {
	frame, err := wire.EncodeControl(msg)
	if err != nil {
		c.log.WithError(err).Error("encode control message failed")
		return
	}
	if err := c.srv.Hub.Send(c.ID, frame); err != nil {
		c.log.WithError(err).Debug("control message dropped")
	}
}

// writeDirect пишет в сокет в обход очереди. Только пока writePump не запущен.
func (c *Client) writeDirect(msg api.ControlMessage) {
	frame, err := wire.EncodeControl(msg)
	if err != nil {
		return
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.log.WithError(err).Debug("write control message failed")
	}
}

// writePump отправляет кадры клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			c.log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				// Хаб закрыл очередь
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.log.WithError(err).Debug("write frame failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
