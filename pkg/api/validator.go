package api

import (
	"errors"
	"math"
	"strings"
)

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p HelloPayload) Validate() error {
	if len(p.Token) > 4096 {
		return errors.New("token too long")
	}
	return nil
}

func (p PositionPayload) Validate() error {
	for _, v := range [...]float32{p.X, p.Y, p.Z} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("position must be finite")
		}
	}
	return nil
}

func (p RoomPayload) Validate() error {
	if strings.TrimSpace(p.Room) == "" {
		return errors.New("room is required")
	}
	return nil
}

func (p TriggerPayload) Validate() error {
	if strings.TrimSpace(p.Kind) == "" {
		return errors.New("kind is required")
	}
	return nil
}
