package facility

import (
	"errors"
	"fmt"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/replication"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/spatial"
)

// Размер комнаты по умолчанию (X - ширина, Y - высота, Z - глубина).
var DefaultRoomSize = domain.Vec3{X: 8, Y: 4, Z: 8}

// Fixture - готовые запросы на создание объектов одной арматуры.
type Fixture struct {
	Room      domain.RoomID
	Template  string
	Primary   replication.SpawnRequest
	Secondary *replication.SpawnRequest
}

// Facility - собранный комплекс: замороженный граф и арматура.
type Facility struct {
	Name     string
	Graph    *spatial.Graph
	Fixtures []Fixture
	// Issues - арматура, отключенная из-за ошибок настройки. Комплекс при этом рабочий.
	Issues []error
}

// Builder предоставляет fluent API для создания комплекса
type Builder struct {
	name      string
	farRadius int
	rooms     []RoomSpec
	links     []LinkSpec
}

// NewBuilder создает новый builder. farRadius - сколько переходов считаются "рядом".
func NewBuilder(name string, farRadius int) *Builder {
	return &Builder{name: name, farRadius: farRadius}
}

// Room добавляет комнату
func (b *Builder) Room(spec RoomSpec) *Builder {
	b.rooms = append(b.rooms, spec)
	return b
}

// Connect связывает комнаты в обе стороны
func (b *Builder) Connect(a, c string) *Builder {
	b.links = append(b.links, LinkSpec{From: a, To: c})
	return b
}

// OneWay добавляет одностороннюю смежность
func (b *Builder) OneWay(from, to string) *Builder {
	b.links = append(b.links, LinkSpec{From: from, To: to, OneWay: true})
	return b
}

// Layout возвращает сериализуемое описание комплекса.
func (b *Builder) Layout() Layout {
	return Layout{
		Name:      b.name,
		FarRadius: b.farRadius,
		Rooms:     append([]RoomSpec(nil), b.rooms...),
		Links:     append([]LinkSpec(nil), b.links...),
	}
}

// Build собирает граф и арматуру.
func (b *Builder) Build() (*Facility, error) {
	return b.Layout().Build()
}

// Build собирает граф и арматуру из раскладки.
// Ошибки графа фатальны, ошибки арматуры отключают только ее.
func (l Layout) Build() (*Facility, error) {
	g := spatial.NewGraph(l.FarRadius)

	var errs []error
	for _, r := range l.Rooms {
		if err := g.AddNode(r.node()); err != nil {
			errs = append(errs, err)
		}
	}
	for _, link := range l.Links {
		from, to := domain.RoomID(link.From), domain.RoomID(link.To)
		var err error
		if link.OneWay {
			err = g.Link(from, to)
		} else {
			err = g.Connect(from, to)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range l.Rooms {
		if len(r.Far) == 0 {
			continue
		}
		far := make([]domain.RoomID, len(r.Far))
		for i, f := range r.Far {
			far[i] = domain.RoomID(f)
		}
		if err := g.SetFar(domain.RoomID(r.ID), far); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("layout %q: %w", l.Name, err)
	}
	g.Freeze()

	f := &Facility{Name: l.Name, Graph: g}
	for _, r := range l.Rooms {
		for _, p := range r.placements() {
			fx, err := r.fixture(p)
			if err != nil {
				f.Issues = append(f.Issues, domain.NewSetupError(r.ID, p.Template, err))
				continue
			}
			f.Fixtures = append(f.Fixtures, fx)
		}
	}
	return f, nil
}

func (r RoomSpec) size() domain.Vec3 {
	if r.Size == (domain.Vec3{}) {
		return DefaultRoomSize
	}
	return r.Size
}

func (r RoomSpec) node() spatial.Node {
	size := r.size()
	special := r.Special
	if t, ok := RoomTemplates[r.Kind]; ok && t.Special {
		special = true
	}
	return spatial.Node{
		ID:       domain.RoomID(r.ID),
		Name:     r.Name,
		Kind:     r.Kind,
		Zone:     r.Zone,
		Position: r.Position,
		Bounds: spatial.Bounds{
			Min: domain.Vec3{X: r.Position.X - size.X/2, Y: r.Position.Y - 0.5, Z: r.Position.Z - size.Z/2},
			Max: domain.Vec3{X: r.Position.X + size.X/2, Y: r.Position.Y + size.Y, Z: r.Position.Z + size.Z/2},
		},
		Special: special,
	}
}

// placements - явная арматура комнаты или шаблон по виду.
func (r RoomSpec) placements() []FixturePlacement {
	if r.Fixtures != nil {
		return r.Fixtures
	}
	return RoomTemplates[r.Kind].Fixtures
}

func (r RoomSpec) fixture(p FixturePlacement) (Fixture, error) {
	t, err := LookupFixture(p.Template)
	if err != nil {
		return Fixture{}, err
	}
	at := domain.Vec3{X: r.Position.X + p.Offset.X, Y: r.Position.Y + p.Offset.Y, Z: r.Position.Z + p.Offset.Z}

	primary, err := t.Primary.snapshot(at, domain.IdentityQuat)
	if err != nil {
		return Fixture{}, err
	}
	fx := Fixture{
		Room:     domain.RoomID(r.ID),
		Template: t.Name,
		Primary:  replication.SpawnRequest{Room: domain.RoomID(r.ID), Category: t.Category, State: primary},
	}
	if t.Paired() {
		secondary, err := t.Secondary.snapshot(at, domain.IdentityQuat)
		if err != nil {
			return Fixture{}, err
		}
		fx.Secondary = &replication.SpawnRequest{Room: domain.RoomID(r.ID), Category: t.Category, State: secondary}
	}
	return fx, nil
}

// Spawner - то, во что выгружается арматура (движок или реестр).
type Spawner interface {
	Spawn(req replication.SpawnRequest) (*replication.Object, error)
}

// Linker связывает пару объектов арматуры.
type Linker interface {
	Link(primary, secondary types.ObjectID) error
}

// Populate создает объекты всей арматуры. Ошибка одной арматуры не мешает остальным.
func (f *Facility) Populate(s Spawner, l Linker) (int, []error) {
	var (
		spawned int
		errs    []error
	)
	for _, fx := range f.Fixtures {
		primary, err := s.Spawn(fx.Primary)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		spawned++
		if fx.Secondary == nil {
			continue
		}

		secondary, err := s.Spawn(*fx.Secondary)
		if err != nil {
			// Свет остается одиночным.
			errs = append(errs, err)
			continue
		}
		spawned++
		if err := l.Link(primary.ID(), secondary.ID()); err != nil {
			errs = append(errs, err)
		}
	}
	return spawned, errs
}
