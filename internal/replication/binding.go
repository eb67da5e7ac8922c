package replication

// BindingKind - вариант привязки логической арматуры к реплицируемым объектам.
type BindingKind uint8

const (
	// BindingSingle - одна цель.
	BindingSingle BindingKind = iota
	// BindingLinkedPair - две цели (например, свет и его плафон), изменяемые вместе.
	BindingLinkedPair
)

func (k BindingKind) String() string {
	switch k {
	case BindingSingle:
		return "SINGLE"
	case BindingLinkedPair:
		return "LINKED_PAIR"
	default:
		return "UNKNOWN"
	}
}

// Binding - закрытый набор вариантов: одна цель или связанная пара.
type Binding struct {
	Kind      BindingKind
	Primary   *Object
	Secondary *Object
}

// Single строит привязку к одному объекту.
func Single(o *Object) Binding {
	return Binding{Kind: BindingSingle, Primary: o}
}

// LinkedPair строит привязку к паре объектов.
func LinkedPair(primary, secondary *Object) Binding {
	return Binding{Kind: BindingLinkedPair, Primary: primary, Secondary: secondary}
}

// Apply применяет fn к каждой живой цели привязки.
func (b Binding) Apply(fn func(o *Object)) {
	switch b.Kind {
	case BindingSingle:
		if b.Primary != nil && !b.Primary.destroyed {
			fn(b.Primary)
		}
	case BindingLinkedPair:
		if b.Primary != nil && !b.Primary.destroyed {
			fn(b.Primary)
		}
		if b.Secondary != nil && !b.Secondary.destroyed {
			fn(b.Secondary)
		}
	}
}

// Alive - основная цель еще существует.
func (b Binding) Alive() bool {
	return b.Primary != nil && b.Primary.Alive()
}

// Objects возвращает цели привязки (для диагностики).
func (b Binding) Objects() []*Object {
	switch b.Kind {
	case BindingLinkedPair:
		if b.Secondary == nil {
			return []*Object{b.Primary}
		}
		return []*Object{b.Primary, b.Secondary}
	default:
		return []*Object{b.Primary}
	}
}
