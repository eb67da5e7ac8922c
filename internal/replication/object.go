package replication

import (
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

// SceneHandle - внешний объект сцены, за которым следит реплицируемый объект.
type SceneHandle interface {
	Alive() bool
}

// Object - реплицируемый излучатель (свет или примитив) с авторитетным состоянием.
//
// live меняется сеттерами в любой момент тика; last - последний обнаруженный снимок,
// общий для всех подписчиков. Базовые снимки по подписчикам хранит Group.
type Object struct {
	id       types.ObjectID
	room     domain.RoomID
	category enums.Category
	handle   SceneHandle

	live domain.Snapshot
	last domain.Snapshot

	base    domain.Snapshot // внешний вид при создании, для восстановления после анимации
	partner *Object

	group     *Group
	onDestroy func(*Object)
	destroyed bool
}

func (o *Object) ID() types.ObjectID       { return o.id }
func (o *Object) Room() domain.RoomID      { return o.room }
func (o *Object) Category() enums.Category { return o.category }
func (o *Object) Kind() enums.ObjectKind   { return o.live.Kind }
func (o *Object) Destroyed() bool          { return o.destroyed }

// State - текущее авторитетное состояние.
func (o *Object) State() domain.Snapshot { return o.live }

// LastBroadcast - снимок, обнаруженный последним вызовом Detect.
func (o *Object) LastBroadcast() domain.Snapshot { return o.last }

// Base - состояние на момент создания.
func (o *Object) Base() domain.Snapshot { return o.base }

// Alive - объект не уничтожен и его сцена жива.
func (o *Object) Alive() bool {
	if o.destroyed {
		return false
	}
	return o.handle == nil || o.handle.Alive()
}

// --- Сеттеры. Применяются к live целиком, маска влияет только на отправку. ---

func (o *Object) SetPosition(v domain.Vec3) { o.live.Position = v }
func (o *Object) SetRotation(q domain.Quat) { o.live.Rotation = q }
func (o *Object) SetScale(v domain.Vec3)    { o.live.Scale = v }
func (o *Object) SetColor(c domain.Color)   { o.live.Color = c }

// Световые поля у примитива не существуют и молча игнорируются.

func (o *Object) SetIntensity(v float32) {
	if o.live.Kind == enums.ObjectKindLight {
		o.live.Intensity = v
	}
}

func (o *Object) SetRange(v float32) {
	if o.live.Kind == enums.ObjectKindLight {
		o.live.Range = v
	}
}

func (o *Object) SetShadows(v bool) {
	if o.live.Kind == enums.ObjectKindLight {
		o.live.Shadows = v
	}
}

// SetState перезаписывает все поля, кроме вида объекта.
func (o *Object) SetState(s domain.Snapshot) {
	s.Kind = o.live.Kind
	if s.Kind != enums.ObjectKindLight {
		s.Intensity, s.Range, s.Shadows = 0, 0, false
	}
	o.live = s
}

// Detect сравнивает live с last один раз за тик. При отличии обновляет last
// и сообщает группе. Для уничтоженной сцены выполняет разрегистрацию и больше ничего не делает.
func (o *Object) Detect() bool {
	if o.destroyed {
		return false
	}
	if o.handle != nil && !o.handle.Alive() {
		o.Destroy()
		return false
	}

	if ComputeDelta(&o.last, &o.live).Empty() {
		return false
	}
	o.last = o.live
	if o.group != nil {
		o.group.NotifyChanged(o)
	}
	return true
}

// Destroy снимает объект с репликации. Повторные вызовы ничего не делают.
func (o *Object) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	if o.group != nil {
		o.group.remove(o)
		o.group = nil
	}
	if o.partner != nil {
		o.partner.partner = nil
		o.partner = nil
	}
	if o.onDestroy != nil {
		o.onDestroy(o)
	}
}
