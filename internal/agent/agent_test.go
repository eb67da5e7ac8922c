package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/network"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/wire"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/api"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func lightSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Kind:      enums.ObjectKindLight,
		Position:  domain.Vec3{X: 1, Y: 2, Z: 3},
		Rotation:  domain.IdentityQuat,
		Scale:     domain.OneVec,
		Color:     domain.Color{R: 1, G: 1, B: 1, A: 1},
		Intensity: 2,
		Range:     10,
		Shadows:   true,
	}
}

// mustFrame принимает результат кодировщика целиком: mustFrame(t)(wire.EncodeSpawn(...)).
func mustFrame(t *testing.T) func([]byte, error) []byte {
	return func(data []byte, err error) []byte {
		t.Helper()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return data
	}
}

func TestMirror_SpawnDeltaRemoved(t *testing.T) {
	m := NewMirror()
	id := types.PackObjectID(0, enums.ObjectKindLight, 1, 1)
	s := lightSnapshot()

	if err := m.Apply(mustFrame(t)(wire.EncodeSpawn(id, &s))); err != nil {
		t.Fatal(err)
	}
	got, ok := m.Get(id)
	if !ok || got != s {
		t.Fatalf("after spawn = %+v, want %+v", got, s)
	}

	s.Color = domain.Color{R: 0, G: 1, B: 0, A: 1}
	s.Intensity = 5
	mask := domain.FieldMask(0).With(domain.FieldColor).With(domain.FieldIntensity)
	if err := m.Apply(mustFrame(t)(wire.EncodeUpdate(wire.TagAppearance, id, mask, &s))); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Get(id); got != s {
		t.Errorf("after appearance = %+v, want %+v", got, s)
	}

	if err := m.Apply(wire.EncodeRemoved(id)); err != nil {
		t.Fatal(err)
	}
	if m.Has(id) || m.Len() != 0 {
		t.Error("object should be gone after REMOVED")
	}
	if m.Frames(wire.TagSpawn) != 1 || m.Frames(wire.TagAppearance) != 1 || m.Frames(wire.TagRemoved) != 1 {
		t.Error("frame counters mismatch")
	}
}

func TestMirror_DeltaWithoutSpawn(t *testing.T) {
	m := NewMirror()
	id := types.PackObjectID(0, enums.ObjectKindPrimitive, 1, 2)
	s := domain.Snapshot{Kind: enums.ObjectKindPrimitive, Position: domain.Vec3{X: 4}}

	err := m.Apply(mustFrame(t)(wire.EncodeUpdate(wire.TagTransform, id, domain.FieldMask(0).With(domain.FieldPosition), &s)))
	if !errors.Is(err, ErrUnknownObject) {
		t.Errorf("Apply() error = %v, want ErrUnknownObject", err)
	}
}

func TestMirror_Control(t *testing.T) {
	m := NewMirror()
	data := mustFrame(t)(wire.EncodeControl(api.ControlMessage{Type: api.ControlWelcome, Subscriber: "c1", WireVersion: wire.Version}))
	if err := m.Apply(data); err != nil {
		t.Fatal(err)
	}
	ctrl := m.Control()
	if len(ctrl) != 1 || ctrl[0].Type != api.ControlWelcome || ctrl[0].Subscriber != "c1" {
		t.Errorf("Control() = %+v", ctrl)
	}
	if err := m.Apply([]byte{1, 2}); err == nil {
		t.Error("expected decode error for short frame")
	}
}

type fakeEngine struct {
	joined, left []domain.SubscriberID
	commands     []domain.InternalCommand
}

func (f *fakeEngine) Join(_ context.Context, sub domain.SubscriberID) error {
	f.joined = append(f.joined, sub)
	return nil
}

func (f *fakeEngine) Leave(_ context.Context, sub domain.SubscriberID) error {
	f.left = append(f.left, sub)
	return nil
}

func (f *fakeEngine) Submit(_ context.Context, cmd domain.InternalCommand) error {
	f.commands = append(f.commands, cmd)
	return nil
}

func TestBot_CommandsAndDrain(t *testing.T) {
	hub := network.NewHub(8)
	eng := &fakeEngine{}
	bot := NewBot("bot-1", hub, eng)

	if err := bot.MoveTo(context.Background(), domain.Vec3{X: 1, Y: 0, Z: 2}); err != nil {
		t.Fatal(err)
	}
	if err := bot.EnterRoom(context.Background(), "LCZ_A"); err != nil {
		t.Fatal(err)
	}
	if len(eng.commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(eng.commands))
	}
	if eng.commands[0].Action != domain.ActionPosition || eng.commands[1].Action != domain.ActionRoom {
		t.Errorf("actions = %v, %v", eng.commands[0].Action, eng.commands[1].Action)
	}
	var room api.RoomPayload
	if err := json.Unmarshal(eng.commands[1].Payload, &room); err != nil || room.Room != "LCZ_A" {
		t.Errorf("room payload = %+v, err %v", room, err)
	}

	id := types.PackObjectID(0, enums.ObjectKindLight, 1, 3)
	s := lightSnapshot()
	if err := hub.Send(bot.ID, mustFrame(t)(wire.EncodeSpawn(id, &s))); err != nil {
		t.Fatal(err)
	}
	if n := bot.Drain(); n != 1 {
		t.Errorf("Drain() = %d, want 1", n)
	}
	if !bot.Mirror.Has(id) {
		t.Error("mirror should contain spawned object")
	}
}

func TestBot_RunJoinsAndLeaves(t *testing.T) {
	hub := network.NewHub(8)
	eng := &fakeEngine{}
	bot := NewBot("bot-2", hub, eng)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(eng.joined) != 1 || len(eng.left) != 1 {
		t.Errorf("joined=%v left=%v", eng.joined, eng.left)
	}
	if hub.HasSubscriber(bot.ID) {
		t.Error("bot should be unregistered after Run")
	}
}
