package facility

import (
	"fmt"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

// Part - один реплицируемый объект арматуры.
type Part struct {
	Kind      enums.ObjectKind
	Offset    domain.Vec3 // от точки установки арматуры
	Scale     domain.Vec3
	Color     string // "#RRGGBB[AA]"
	Intensity float32
	Range     float32
	Shadows   bool
}

// FixtureTemplate определяет шаблон арматуры: одиночный объект или пара (свет + плафон).
type FixtureTemplate struct {
	Name     string
	Category enums.Category
	Primary  Part
	// Secondary - вторая часть пары. nil для одиночной арматуры.
	Secondary *Part
}

// Paired - арматура из двух связанных объектов.
func (t FixtureTemplate) Paired() bool {
	return t.Secondary != nil
}

// snapshot собирает начальное состояние части на мировой позиции.
func (p Part) snapshot(at domain.Vec3, rotation domain.Quat) (domain.Snapshot, error) {
	c, err := types.ParseHexRGBA(p.Color)
	if err != nil {
		return domain.Snapshot{}, err
	}
	r, g, b, a := c.Floats()

	scale := p.Scale
	if scale == (domain.Vec3{}) {
		scale = domain.OneVec
	}
	s := domain.Snapshot{
		Kind:     p.Kind,
		Position: domain.Vec3{X: at.X + p.Offset.X, Y: at.Y + p.Offset.Y, Z: at.Z + p.Offset.Z},
		Rotation: rotation,
		Scale:    scale,
		Color:    domain.Color{R: r, G: g, B: b, A: a},
	}
	if p.Kind == enums.ObjectKindLight {
		s.Intensity = p.Intensity
		s.Range = p.Range
		s.Shadows = p.Shadows
	}
	return s, nil
}

// --- АРМАТУРА ---

var CeilingLamp = FixtureTemplate{
	Name:     "ceiling_lamp",
	Category: enums.CategoryDecor,
	Primary: Part{
		Kind:      enums.ObjectKindLight,
		Offset:    domain.Vec3{Y: 3},
		Color:     "#FFF4E0",
		Intensity: 1.5,
		Range:     12,
		Shadows:   true,
	},
}

// PathLight - напольный огонь эвакуации со стрелкой-плафоном.
var PathLight = FixtureTemplate{
	Name:     "path_light",
	Category: enums.CategoryPathLight,
	Primary: Part{
		Kind:      enums.ObjectKindLight,
		Offset:    domain.Vec3{Y: 0.2},
		Color:     "#FFFFFF",
		Intensity: 2,
		Range:     4,
	},
	Secondary: &Part{
		Kind:   enums.ObjectKindPrimitive,
		Offset: domain.Vec3{Y: 0.1},
		Scale:  domain.Vec3{X: 0.6, Y: 0.05, Z: 0.6},
		Color:  "#D0D0D0",
	},
}

// BeaconLight - одиночный огонь без плафона (узкие коридоры).
var BeaconLight = FixtureTemplate{
	Name:     "beacon_light",
	Category: enums.CategoryPathLight,
	Primary: Part{
		Kind:      enums.ObjectKindLight,
		Offset:    domain.Vec3{Y: 0.2},
		Color:     "#FFFFFF",
		Intensity: 1,
		Range:     3,
	},
}

var WarningStrip = FixtureTemplate{
	Name:     "warning_strip",
	Category: enums.CategoryDecor,
	Primary: Part{
		Kind:  enums.ObjectKindPrimitive,
		Scale: domain.Vec3{X: 4, Y: 0.02, Z: 0.3},
		Color: "#FACC15",
	},
}

var ExitSign = FixtureTemplate{
	Name:     "exit_sign",
	Category: enums.CategoryDecor,
	Primary: Part{
		Kind:      enums.ObjectKindLight,
		Offset:    domain.Vec3{Y: 2.5},
		Color:     "#22C55E",
		Intensity: 0.8,
		Range:     3,
	},
	Secondary: &Part{
		Kind:   enums.ObjectKindPrimitive,
		Offset: domain.Vec3{Y: 2.5},
		Scale:  domain.Vec3{X: 0.8, Y: 0.3, Z: 0.05},
		Color:  "#16A34A",
	},
}

// FixtureTemplates - карта всех доступных шаблонов арматуры
var FixtureTemplates = map[string]FixtureTemplate{
	CeilingLamp.Name:  CeilingLamp,
	PathLight.Name:    PathLight,
	BeaconLight.Name:  BeaconLight,
	WarningStrip.Name: WarningStrip,
	ExitSign.Name:     ExitSign,
}

// LookupFixture ищет шаблон по имени.
func LookupFixture(name string) (FixtureTemplate, error) {
	t, ok := FixtureTemplates[name]
	if !ok {
		return FixtureTemplate{}, fmt.Errorf("unknown fixture template %q", name)
	}
	return t, nil
}

// --- КОМНАТЫ ---

// Виды комнат. Checkpoint и Exit служат источниками для путевых огней.
const (
	KindCorridor   = "CORRIDOR"
	KindRoom       = "ROOM"
	KindCheckpoint = "CHECKPOINT"
	KindExit       = "EXIT"
)

// RoomTemplate - набор арматуры, который ставится в комнату данного вида.
type RoomTemplate struct {
	Kind     string
	Special  bool
	Fixtures []FixturePlacement
}

// FixturePlacement - шаблон и смещение от центра комнаты.
type FixturePlacement struct {
	Template string      `json:"template" msgpack:"template"`
	Offset   domain.Vec3 `json:"offset" msgpack:"offset"`
}

// RoomTemplates - карта шаблонов комнат по виду
var RoomTemplates = map[string]RoomTemplate{
	KindCorridor: {
		Kind: KindCorridor,
		Fixtures: []FixturePlacement{
			{Template: "ceiling_lamp"},
			{Template: "beacon_light"},
		},
	},
	KindRoom: {
		Kind: KindRoom,
		Fixtures: []FixturePlacement{
			{Template: "ceiling_lamp", Offset: domain.Vec3{X: -1.5}},
			{Template: "ceiling_lamp", Offset: domain.Vec3{X: 1.5}},
			{Template: "path_light"},
		},
	},
	KindCheckpoint: {
		Kind:    KindCheckpoint,
		Special: true,
		Fixtures: []FixturePlacement{
			{Template: "ceiling_lamp"},
			{Template: "warning_strip", Offset: domain.Vec3{Z: -1}},
			{Template: "path_light"},
		},
	},
	KindExit: {
		Kind:    KindExit,
		Special: true,
		Fixtures: []FixturePlacement{
			{Template: "exit_sign"},
			{Template: "path_light"},
		},
	},
}
