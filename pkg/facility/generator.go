package facility

import (
	"fmt"
	"math/rand"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

// Константы генерации
const (
	GridCols    = 6
	GridRows    = 4
	MaxRooms    = 14
	RoomSpacing = 10
	ExtraLinks  = 3
)

// GenOptions - параметры генератора демо-комплекса.
type GenOptions struct {
	Cols, Rows int
	Rooms      int
	Spacing    float32
	ExtraLinks int
	FarRadius  int
}

func DefaultGenOptions() GenOptions {
	return GenOptions{
		Cols:       GridCols,
		Rows:       GridRows,
		Rooms:      MaxRooms,
		Spacing:    RoomSpacing,
		ExtraLinks: ExtraLinks,
		FarRadius:  2,
	}
}

type cell struct{ col, row int }

// Generate строит связный комплекс на сетке. Одинаковый seed дает одинаковую раскладку.
// Первая комната - КПП, последняя - выход.
func Generate(seed int64, opts GenOptions) Layout {
	rng := rand.New(rand.NewSource(seed))
	if opts.Rooms > opts.Cols*opts.Rows {
		opts.Rooms = opts.Cols * opts.Rows
	}
	if opts.Rooms < 2 {
		opts.Rooms = 2
	}

	b := NewBuilder(fmt.Sprintf("facility-%d", seed), opts.FarRadius)

	// 1. Случайный остов: каждая новая комната пристраивается к уже существующей.
	ids := make(map[cell]string)
	order := []cell{{0, 0}}
	ids[order[0]] = roomID(0)
	var tree [][2]cell

	for attempts := 0; len(order) < opts.Rooms && attempts < opts.Rooms*50; attempts++ {
		from := order[rng.Intn(len(order))]
		next := neighbour(from, rng.Intn(4))
		if !inGrid(next, opts) {
			continue
		}
		if _, taken := ids[next]; taken {
			continue
		}
		ids[next] = roomID(len(order))
		order = append(order, next)
		tree = append(tree, [2]cell{from, next})
	}

	// 2. Комнаты
	for i, c := range order {
		kind := KindRoom
		switch {
		case i == 0:
			kind = KindCheckpoint
		case i == len(order)-1:
			kind = KindExit
		case rng.Float32() < 0.3:
			kind = KindCorridor
		}
		zone := "LCZ"
		if c.col >= opts.Cols/2 {
			zone = "HCZ"
		}
		b.Room(RoomSpec{
			ID:       ids[c],
			Kind:     kind,
			Zone:     zone,
			Position: domain.Vec3{X: float32(c.col) * opts.Spacing, Z: float32(c.row) * opts.Spacing},
			Size:     domain.Vec3{X: opts.Spacing * 0.8, Y: 4, Z: opts.Spacing * 0.8},
		})
	}
	for _, e := range tree {
		b.Connect(ids[e[0]], ids[e[1]])
	}

	// 3. Дополнительные переходы, чтобы появились циклы.
	linked := make(map[[2]string]bool)
	for _, e := range tree {
		linked[[2]string{ids[e[0]], ids[e[1]]}] = true
		linked[[2]string{ids[e[1]], ids[e[0]]}] = true
	}
	for added, attempts := 0, 0; added < opts.ExtraLinks && attempts < 100; attempts++ {
		from := order[rng.Intn(len(order))]
		to := neighbour(from, rng.Intn(4))
		toID, ok := ids[to]
		if !ok || linked[[2]string{ids[from], toID}] {
			continue
		}
		linked[[2]string{ids[from], toID}] = true
		linked[[2]string{toID, ids[from]}] = true
		b.Connect(ids[from], toID)
		added++
	}

	return b.Layout()
}

func roomID(i int) string {
	return fmt.Sprintf("room_%02d", i)
}

func neighbour(c cell, dir int) cell {
	switch dir {
	case 0:
		return cell{c.col + 1, c.row}
	case 1:
		return cell{c.col - 1, c.row}
	case 2:
		return cell{c.col, c.row + 1}
	default:
		return cell{c.col, c.row - 1}
	}
}

func inGrid(c cell, opts GenOptions) bool {
	return c.col >= 0 && c.row >= 0 && c.col < opts.Cols && c.row < opts.Rows
}
