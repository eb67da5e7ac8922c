package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/agent"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/engine"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/network"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/replication"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/spatial"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/api"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestAuthenticator_DevMode(t *testing.T) {
	a := NewAuthenticator("")
	if !a.DevMode() {
		t.Fatal("empty secret must enable dev mode")
	}

	sub, err := a.Identify("  player-7 ")
	if err != nil || sub != "player-7" {
		t.Errorf("Identify() = %q, %v", sub, err)
	}
	anon, err := a.Identify("")
	if err != nil || anon == "" {
		t.Errorf("anonymous Identify() = %q, %v", anon, err)
	}
	other, _ := a.Identify("")
	if other == anon {
		t.Error("anonymous ids must be unique")
	}

	if _, err := a.Identify(strings.Repeat("a", MaxSubscriberLen+1)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Identify(long) error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticator_LongSubjectRejected(t *testing.T) {
	a := NewAuthenticator("secret")
	token, err := a.Issue(domain.SubscriberID(strings.Repeat("s", MaxSubscriberLen+1)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Identify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Identify() error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticator_Tokens(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := NewAuthenticator("top-secret")
	a.now = func() time.Time { return now }

	token, err := a.Issue("client-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name    string
		auth    *Authenticator
		token   string
		want    domain.SubscriberID
		wantErr error
	}{
		{name: "valid", auth: a, token: token, want: "client-1"},
		{name: "missing", auth: a, token: "", wantErr: ErrMissingToken},
		{name: "garbage", auth: a, token: "not-a-jwt", wantErr: ErrInvalidToken},
		{name: "wrong secret", auth: NewAuthenticator("other"), token: token, wantErr: ErrInvalidToken},
		{name: "unsigned", auth: a, token: unsignedToken(t, now), wantErr: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.auth.now = a.now
			got, err := tt.auth.Identify(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Identify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Identify() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		later := NewAuthenticator("top-secret")
		later.now = func() time.Time { return now.Add(48 * time.Hour) }
		if _, err := later.Identify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Identify(expired) error = %v", err)
		}
	})
}

func unsignedToken(t *testing.T, now time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "intruder",
		Issuer:    defaultIssuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// --- HTTP / WebSocket ---

type testEnv struct {
	srv    *Server
	http   *httptest.Server
	engine *engine.Engine
	cancel context.CancelFunc
	done   chan error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	g := spatial.NewGraph(1)
	if err := g.AddNode(spatial.Node{
		ID:   "HALL",
		Kind: "CHECKPOINT",
		Bounds: spatial.Bounds{
			Min: domain.Vec3{X: -5, Y: -1, Z: -5},
			Max: domain.Vec3{X: 5, Y: 5, Z: 5},
		},
	}); err != nil {
		t.Fatal(err)
	}

	cfg := engine.NewConfig()
	cfg.TickRate = 100
	cfg.SubscriptionPeriod = 20 * time.Millisecond
	hub := network.NewHub(64)
	eng := engine.New(cfg, g, hub)
	if _, err := eng.Spawn(replication.SpawnRequest{
		Room:     "HALL",
		Category: enums.CategoryPathLight,
		State: domain.Snapshot{
			Kind:      enums.ObjectKindLight,
			Rotation:  domain.IdentityQuat,
			Scale:     domain.OneVec,
			Color:     domain.Color{R: 1, G: 1, B: 1, A: 1},
			Intensity: 1,
			Range:     5,
		},
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	env := &testEnv{
		srv:    New(eng, hub, NewAuthenticator(""), "0"),
		engine: eng,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	env.srv.ctx = ctx
	env.http = httptest.NewServer(env.srv.Routes())
	go func() { env.done <- eng.Run(ctx) }()

	t.Cleanup(func() {
		env.http.Close()
		env.cancel()
		<-env.done
	})
	return env
}

func (env *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(api.ClientCommand{Action: action, Payload: raw}); err != nil {
		t.Fatal(err)
	}
}

// readUntil применяет кадры к зеркалу, пока cond не выполнится.
func readUntil(t *testing.T, conn *websocket.Conn, m *agent.Mirror, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatal(err)
		}
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if kind != websocket.BinaryMessage {
			t.Fatalf("message type = %d, want binary", kind)
		}
		if err := m.Apply(data); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
}

func TestWebSocket_WelcomeAndReplication(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	mirror := agent.NewMirror()

	send(t, conn, "HELLO", api.HelloPayload{Token: "viewer"})
	readUntil(t, conn, mirror, func() bool { return len(mirror.Control()) > 0 })

	welcome := mirror.Control()[0]
	if welcome.Type != api.ControlWelcome || welcome.Subscriber != "viewer" || welcome.WireVersion != 1 {
		t.Fatalf("welcome = %+v", welcome)
	}

	send(t, conn, "POSITION", api.PositionPayload{X: 1, Y: 0, Z: 1})
	readUntil(t, conn, mirror, func() bool { return mirror.Len() == 1 })

	id := mirror.IDs()[0]
	got, _ := mirror.Get(id)
	if got.Kind != enums.ObjectKindLight || got.Range != 5 || got.Intensity != 1 {
		t.Errorf("mirrored light = %+v", got)
	}
}

func TestWebSocket_RejectsBadHandshake(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	mirror := agent.NewMirror()

	send(t, conn, "ROOM", api.RoomPayload{Room: "HALL"})
	readUntil(t, conn, mirror, func() bool { return len(mirror.Control()) > 0 })
	if msg := mirror.Control()[0]; msg.Type != api.ControlError {
		t.Errorf("control = %+v, want ERROR", msg)
	}
}

func TestWebSocket_DuplicateSubscriberKeepsFirstSession(t *testing.T) {
	env := newTestEnv(t)

	first := env.dial(t)
	firstMirror := agent.NewMirror()
	send(t, first, "HELLO", api.HelloPayload{Token: "viewer"})
	readUntil(t, first, firstMirror, func() bool { return len(firstMirror.Control()) > 0 })

	second := env.dial(t)
	secondMirror := agent.NewMirror()
	send(t, second, "HELLO", api.HelloPayload{Token: "viewer"})
	readUntil(t, second, secondMirror, func() bool { return len(secondMirror.Control()) > 0 })
	msg := secondMirror.Control()[0]
	if msg.Type != api.ControlError || !strings.Contains(msg.Error, ErrAlreadyConnected.Error()) {
		t.Fatalf("second control = %+v, want already connected error", msg)
	}

	// Первая сессия продолжает получать кадры.
	send(t, first, "POSITION", api.PositionPayload{X: 1, Y: 0, Z: 1})
	readUntil(t, first, firstMirror, func() bool { return firstMirror.Len() == 1 })
}

func TestHTTP_HealthAndVersion(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.http.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(env.http.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var info map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info["WireVersion"] != float64(1) {
		t.Errorf("/version = %v", info)
	}
}

func TestDebug_GroupsAndTrigger(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.http.URL + "/debug/groups")
	if err != nil {
		t.Fatal(err)
	}
	var groups []engine.GroupInfo
	err = json.NewDecoder(resp.Body).Decode(&groups)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Room != "HALL" || groups[0].Objects != 1 {
		t.Errorf("groups = %+v", groups)
	}

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"blank kind", http.MethodPost, `{"kind":" "}`, http.StatusBadRequest},
		{"unknown kind", http.MethodPost, `{"kind":"ALIENS"}`, http.StatusBadRequest},
		{"warhead", http.MethodPost, `{"kind":"warhead_starting"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.http.URL+"/debug/trigger", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
