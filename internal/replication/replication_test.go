package replication

import (
	"errors"
	"os"
	"testing"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/spatial"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/wire"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// recordingTransport запоминает кадры по подписчикам и умеет "ронять" отправку.
type recordingTransport struct {
	frames  map[domain.SubscriberID][][]byte
	failing map[domain.SubscriberID]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		frames:  make(map[domain.SubscriberID][][]byte),
		failing: make(map[domain.SubscriberID]bool),
	}
}

func (t *recordingTransport) Send(sub domain.SubscriberID, frame []byte) error {
	if t.failing[sub] {
		return errors.New("queue full")
	}
	t.frames[sub] = append(t.frames[sub], append([]byte(nil), frame...))
	return nil
}

// take возвращает декодированные кадры подписчика и очищает буфер.
func (t *recordingTransport) take(tb testing.TB, sub domain.SubscriberID) []wire.Frame {
	tb.Helper()
	var out []wire.Frame
	for _, raw := range t.frames[sub] {
		f, err := wire.Decode(raw)
		if err != nil {
			tb.Fatalf("decode frame for %s: %v", sub, err)
		}
		out = append(out, f)
	}
	delete(t.frames, sub)
	return out
}

func (t *recordingTransport) total() int {
	n := 0
	for _, fs := range t.frames {
		n += len(fs)
	}
	return n
}

func testGraph(t *testing.T) *spatial.Graph {
	t.Helper()
	g := spatial.NewGraph(1)
	for _, id := range []domain.RoomID{"A", "B", "C", "Dark"} {
		if err := g.AddNode(spatial.Node{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	_ = g.Connect("A", "B")
	_ = g.Connect("B", "C")
	_ = g.Connect("C", "Dark")
	g.Freeze()
	return g
}

func lightState() domain.Snapshot {
	return domain.Snapshot{
		Kind:      enums.ObjectKindLight,
		Rotation:  domain.IdentityQuat,
		Scale:     domain.OneVec,
		Color:     domain.Color{R: 1, G: 1, B: 1, A: 1},
		Intensity: 1,
		Range:     5,
	}
}

func spawnLight(t *testing.T, r *Registry, room domain.RoomID) *Object {
	t.Helper()
	o, err := r.Spawn(SpawnRequest{Room: room, State: lightState()})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	return o
}

// tick повторяет фазы движка: обнаружение, затем рассылка.
func tick(r *Registry) FlushStats {
	r.Detect()
	return r.Flush()
}

func TestComputeDelta(t *testing.T) {
	base := lightState()

	moved := base
	moved.Position.X = 1

	recolored := base
	recolored.Color.G = 0.5
	recolored.Shadows = true

	prim := domain.Snapshot{Kind: enums.ObjectKindPrimitive}
	primLit := prim
	primLit.Intensity = 3

	tests := []struct {
		name string
		prev *domain.Snapshot
		cur  domain.Snapshot
		want domain.FieldMask
		full bool
	}{
		{"never sent light", nil, base, 0x7F, true},
		{"never sent primitive", nil, prim, 0x0F, true},
		{"identical", &base, base, 0, false},
		{"position only", &base, moved, 1 << domain.FieldPosition, false},
		{"appearance only", &base, recolored, 1<<domain.FieldColor | 1<<domain.FieldShadows, false},
		{"light fields ignored on primitive", &prim, primLit, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ComputeDelta(tt.prev, &tt.cur)
			if d.Mask != tt.want || d.Full != tt.full {
				t.Errorf("ComputeDelta() = %v/%v, want %v/%v", d.Mask, d.Full, tt.want, tt.full)
			}
		})
	}
}

func TestEncodeDelta_SplitsGroups(t *testing.T) {
	id := types.PackObjectID(0, enums.ObjectKindLight, 1, 1)
	s := lightState()
	d := Delta{Mask: 1<<domain.FieldRotation | 1<<domain.FieldIntensity}

	frames, err := EncodeDelta(id, d, &s)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	first, _ := wire.Decode(frames[0])
	second, _ := wire.Decode(frames[1])
	if first.Tag != wire.TagTransform || first.Mask != 1<<domain.FieldRotation {
		t.Errorf("first = %s %s", first.Tag, first.Mask)
	}
	if second.Tag != wire.TagAppearance || second.Mask != 1<<domain.FieldIntensity {
		t.Errorf("second = %s %s", second.Tag, second.Mask)
	}
}

func TestObject_UnchangedSendsNothing(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	o := spawnLight(t, r, "A")
	r.Group("A").AddSubscriber("c1")
	tr.take(t, "c1")

	for i := 0; i < 3; i++ {
		o.SetColor(o.State().Color) // тот же цвет
		if o.Detect() {
			t.Fatal("Detect() reported change for identical state")
		}
		if n := r.Flush().Frames; n != 0 {
			t.Fatalf("Flush() sent %d frames", n)
		}
	}
	if tr.total() != 0 {
		t.Errorf("transport received %d frames", tr.total())
	}
	if r.Group("A").PendingCount() != 0 {
		t.Error("group has pending objects without changes")
	}
}

func TestGroup_FullSendOnJoin(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	o := spawnLight(t, r, "A")
	g := r.Group("A")

	o.SetIntensity(4)
	tick(r)

	if !g.AddSubscriber("late") {
		t.Fatal("AddSubscriber() = false for new member")
	}
	frames := tr.take(t, "late")
	if len(frames) != 1 || frames[0].Tag != wire.TagSpawn || frames[0].Mask != 0x7F {
		t.Fatalf("join frames = %+v", frames)
	}
	if frames[0].State.Intensity != 4 {
		t.Errorf("spawn intensity = %v", frames[0].State.Intensity)
	}
	if g.AddSubscriber("late") {
		t.Error("second AddSubscriber() should be a no-op")
	}
	if tr.total() != 0 {
		t.Error("no-op join must not send")
	}

	// Повторное вступление снова начинается с полного снимка.
	g.RemoveSubscriber("late")
	tr.take(t, "late")
	g.AddSubscriber("late")
	if frames := tr.take(t, "late"); len(frames) != 1 || frames[0].Mask != 0x7F {
		t.Errorf("rejoin frames = %+v", frames)
	}
}

func TestGroup_PerSubscriberIndependence(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	o := spawnLight(t, r, "A")
	g := r.Group("A")

	g.AddSubscriber("early")
	tr.take(t, "early")

	// Тик 1: меняется цвет, но отправка early падает - его базовый снимок отстает.
	tr.failing["early"] = true
	o.SetColor(domain.Color{R: 1, A: 1})
	tick(r)
	tr.failing["early"] = false

	// late вступает после этого и видит уже новый цвет.
	g.AddSubscriber("late")
	tr.take(t, "late")

	// Тик 2: меняется только позиция.
	o.SetPosition(domain.Vec3{X: 3})
	tick(r)

	early := tr.take(t, "early")
	late := tr.take(t, "late")

	var earlyMask, lateMask domain.FieldMask
	for _, f := range early {
		earlyMask |= f.Mask
	}
	for _, f := range late {
		lateMask |= f.Mask
	}
	if earlyMask != 1<<domain.FieldPosition|1<<domain.FieldColor {
		t.Errorf("early mask = %s", earlyMask)
	}
	if lateMask != 1<<domain.FieldPosition {
		t.Errorf("late mask = %s", lateMask)
	}

	for _, sub := range []domain.SubscriberID{"early", "late"} {
		base, err := g.Baseline(o.ID(), sub)
		if err != nil {
			t.Fatalf("Baseline(%s) error = %v", sub, err)
		}
		if base != o.State() {
			t.Errorf("Baseline(%s) = %+v, want live state", sub, base)
		}
	}
}

func TestObject_DestroyPurgesBaselines(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	o := spawnLight(t, r, "A")
	g := r.Group("A")
	g.AddSubscriber("c1")
	g.AddSubscriber("c2")
	tr.take(t, "c1")
	tr.take(t, "c2")

	id := o.ID()
	o.Destroy()
	o.Destroy()

	for _, sub := range []domain.SubscriberID{"c1", "c2"} {
		if _, err := g.Baseline(id, sub); !errors.Is(err, domain.ErrNoBaseline) {
			t.Errorf("Baseline(%s) error = %v, want ErrNoBaseline", sub, err)
		}
		frames := tr.take(t, sub)
		if len(frames) != 1 || frames[0].Tag != wire.TagRemoved || frames[0].Object != id {
			t.Errorf("%s frames = %+v", sub, frames)
		}
	}
	if g.ObjectCount() != 0 {
		t.Error("object still in group")
	}
	if _, err := r.Object(id); !errors.Is(err, domain.ErrStaleReference) {
		t.Errorf("Object() error = %v", err)
	}

	// Изменения уничтоженного объекта больше не сравниваются.
	o.SetPosition(domain.Vec3{X: 9})
	if o.Detect() {
		t.Error("Detect() on destroyed object")
	}
}

type fakeHandle struct{ alive bool }

func (h *fakeHandle) Alive() bool { return h.alive }

func TestObject_DeadHandleDeregistersOnce(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	h := &fakeHandle{alive: true}
	o, err := r.Spawn(SpawnRequest{Room: "A", State: lightState(), Handle: h})
	if err != nil {
		t.Fatal(err)
	}
	r.Group("A").AddSubscriber("c1")
	tr.take(t, "c1")

	h.alive = false
	o.SetPosition(domain.Vec3{X: 1})
	tick(r)
	tick(r)

	frames := tr.take(t, "c1")
	if len(frames) != 1 || frames[0].Tag != wire.TagRemoved {
		t.Errorf("frames = %+v, want exactly one REMOVED", frames)
	}
	if r.Len() != 0 {
		t.Errorf("registry still holds %d objects", r.Len())
	}
}

func TestGroup_RemoveSubscriberPurgesEagerly(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	o := spawnLight(t, r, "A")
	g := r.Group("A")
	g.AddSubscriber("c1")
	tr.take(t, "c1")

	if !g.RemoveSubscriber("c1") {
		t.Fatal("RemoveSubscriber() = false")
	}
	if _, err := g.Baseline(o.ID(), "c1"); !errors.Is(err, domain.ErrNoBaseline) {
		t.Errorf("Baseline() error = %v", err)
	}
	if frames := tr.take(t, "c1"); len(frames) != 1 || frames[0].Tag != wire.TagRemoved {
		t.Errorf("frames = %+v", frames)
	}

	// Не участник больше ничего не получает.
	o.SetRange(20)
	tick(r)
	if tr.total() != 0 {
		t.Error("former member received an update")
	}
}

func TestGroup_FailedJoinRetriesFullSend(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	spawnLight(t, r, "A")
	g := r.Group("A")

	tr.failing["c1"] = true
	g.AddSubscriber("c1")
	tr.failing["c1"] = false

	tick(r)
	frames := tr.take(t, "c1")
	if len(frames) != 1 || frames[0].Tag != wire.TagSpawn {
		t.Errorf("retry frames = %+v", frames)
	}
}

func TestRegistry_SpawnIntoWatchedRoom(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	spawnLight(t, r, "A")
	r.Group("A").AddSubscriber("c1")
	tr.take(t, "c1")

	o := spawnLight(t, r, "A")
	tick(r)
	frames := tr.take(t, "c1")
	if len(frames) != 1 || frames[0].Tag != wire.TagSpawn || frames[0].Object != o.ID() {
		t.Errorf("frames = %+v", frames)
	}
}

func TestRegistry_SpawnKeepsLightFields(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)

	state := lightState()
	state.Intensity, state.Range, state.Shadows = 2, 5, true
	light, err := r.Spawn(SpawnRequest{Room: "A", State: state})
	if err != nil {
		t.Fatal(err)
	}

	for name, got := range map[string]domain.Snapshot{"State": light.State(), "Base": light.Base()} {
		if got.Intensity != 2 || got.Range != 5 || !got.Shadows {
			t.Errorf("%s() = intensity %v range %v shadows %v", name, got.Intensity, got.Range, got.Shadows)
		}
	}

	r.Group("A").AddSubscriber("c1")
	frames := tr.take(t, "c1")
	if len(frames) != 1 || frames[0].Tag != wire.TagSpawn {
		t.Fatalf("frames = %+v", frames)
	}
	if f := frames[0].State; f.Intensity != 2 || f.Range != 5 || !f.Shadows {
		t.Errorf("spawn frame = %+v", f)
	}

	prim := state
	prim.Kind = enums.ObjectKindPrimitive
	p, err := r.Spawn(SpawnRequest{Room: "B", State: prim})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.State(); got.Intensity != 0 || got.Range != 0 || got.Shadows {
		t.Errorf("primitive keeps light fields: %+v", got)
	}
}

func TestRegistry_SpawnErrorsAndIDReuse(t *testing.T) {
	r := NewRegistry(3, testGraph(t), newRecordingTransport())

	if _, err := r.Spawn(SpawnRequest{Room: "nowhere", State: lightState()}); !errors.Is(err, domain.ErrSetup) {
		t.Errorf("unknown room error = %v", err)
	}
	if _, err := r.Spawn(SpawnRequest{Room: "A"}); !errors.Is(err, domain.ErrSetup) {
		t.Errorf("unknown kind error = %v", err)
	}

	first := spawnLight(t, r, "A")
	if first.ID().Shard() != 3 || first.ID().Kind() != enums.ObjectKindLight {
		t.Errorf("id = %v", first.ID())
	}
	oldID := first.ID()
	if err := r.Destroy(oldID); err != nil {
		t.Fatal(err)
	}
	if err := r.Destroy(oldID); !errors.Is(err, domain.ErrStaleReference) {
		t.Errorf("second Destroy() error = %v", err)
	}

	second := spawnLight(t, r, "B")
	if second.ID().Index() != oldID.Index() {
		t.Errorf("slot not reused: %v vs %v", second.ID(), oldID)
	}
	if second.ID() == oldID {
		t.Error("reused slot must get a new generation")
	}
	if _, err := r.Object(oldID); !errors.Is(err, domain.ErrStaleReference) {
		t.Errorf("old id lookup error = %v", err)
	}
}

func TestBinding_LinkedPair(t *testing.T) {
	r := NewRegistry(0, testGraph(t), newRecordingTransport())
	light := spawnLight(t, r, "A")
	shade, err := r.Spawn(SpawnRequest{Room: "A", State: domain.Snapshot{Kind: enums.ObjectKindPrimitive}})
	if err != nil {
		t.Fatal(err)
	}

	if b := r.BindingOf(light); b.Kind != BindingSingle {
		t.Errorf("unlinked binding = %s", b.Kind)
	}
	if err := r.Link(light.ID(), shade.ID()); err != nil {
		t.Fatal(err)
	}

	b := r.BindingOf(light)
	if b.Kind != BindingLinkedPair || len(b.Objects()) != 2 {
		t.Fatalf("binding = %+v", b)
	}
	red := domain.Color{R: 1, A: 1}
	b.Apply(func(o *Object) { o.SetColor(red) })
	if light.State().Color != red || shade.State().Color != red {
		t.Error("Apply() did not reach both targets")
	}

	shade.Destroy()
	if b := r.BindingOf(light); b.Kind != BindingSingle {
		t.Errorf("binding after partner destroy = %s", b.Kind)
	}
}

func TestSubscriptionManager_Refresh(t *testing.T) {
	tr := newRecordingTransport()
	r := NewRegistry(0, testGraph(t), tr)
	spawnLight(t, r, "A")
	spawnLight(t, r, "B")
	spawnLight(t, r, "C")

	rooms := map[domain.SubscriberID]domain.RoomID{"c1": "A"}
	m := NewSubscriptionManager(r, LocatorFunc(func(sub domain.SubscriberID) domain.RoomID { return rooms[sub] }))
	m.Connect("c1")

	st := m.Refresh()
	if st.Subscribed != 2 {
		t.Fatalf("first refresh = %+v", st)
	}
	if !r.Group("A").HasSubscriber("c1") || !r.Group("B").HasSubscriber("c1") || r.Group("C").HasSubscriber("c1") {
		t.Error("membership in A should cover A and B only")
	}
	tr.take(t, "c1")

	// Та же комната: никаких вызовов и отправок.
	if st := m.Refresh(); st.Skipped != 1 || st.Checked != 0 {
		t.Errorf("unchanged refresh = %+v", st)
	}
	if tr.total() != 0 {
		t.Error("unchanged room produced traffic")
	}

	rooms["c1"] = "C"
	st = m.Refresh()
	if st.Subscribed != 1 || st.Unsubscribed != 1 {
		t.Errorf("move refresh = %+v", st)
	}
	if r.Group("A").HasSubscriber("c1") || !r.Group("B").HasSubscriber("c1") || !r.Group("C").HasSubscriber("c1") {
		t.Error("membership in C should cover B and C")
	}

	// Комната без объектов: клиент выходит из всех групп.
	rooms["c1"] = "Dark"
	m.Refresh()
	for _, g := range r.Groups() {
		if g.HasSubscriber("c1") {
			t.Errorf("still subscribed to %s", g.Room())
		}
	}
	if len(m.Desired("c1")) != 0 {
		t.Errorf("Desired() = %v", m.Desired("c1"))
	}
}

func TestSubscriptionManager_Disconnect(t *testing.T) {
	r := NewRegistry(0, testGraph(t), newRecordingTransport())
	spawnLight(t, r, "A")
	m := NewSubscriptionManager(r, LocatorFunc(func(domain.SubscriberID) domain.RoomID { return "A" }))
	m.Connect("c1")
	m.Refresh()

	m.Disconnect("c1")
	if r.Group("A").HasSubscriber("c1") {
		t.Error("disconnect left membership behind")
	}
	if len(m.Clients()) != 0 {
		t.Error("client still tracked")
	}
}
