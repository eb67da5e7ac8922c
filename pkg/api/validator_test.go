package api

import (
	"math"
	"testing"
)

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload Validator
		wantErr bool
	}{
		{"hello empty token is dev mode", HelloPayload{}, false},
		{"position finite", PositionPayload{X: 1, Y: 2, Z: 3}, false},
		{"position nan", PositionPayload{X: float32(math.NaN())}, true},
		{"position inf", PositionPayload{Z: float32(math.Inf(1))}, true},
		{"room set", RoomPayload{Room: "LCZ_Armory"}, false},
		{"room blank", RoomPayload{Room: "  "}, true},
		{"trigger kind required", TriggerPayload{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
