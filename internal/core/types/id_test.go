package types

import (
	"bytes"
	"testing"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/core/types/enums"
)

func TestObjectID_Generation(t *testing.T) {
	tests := []struct {
		name string
		id   ObjectID
		want uint16
	}{
		{
			name: "Generation zero",
			id:   ObjectID(0),
			want: 0,
		},
		{
			name: "Generation simple",
			id:   ObjectID(uint64(1) << shiftGen),
			want: 1,
		},
		{
			name: "Generation max",
			id:   ObjectID(uint64(maskGen) << shiftGen),
			want: maskGen,
		},
		{
			name: "Generation masked correctly",
			id:   ObjectID(uint64(0xFFFFFFFF) << shiftGen),
			want: maskGen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Generation(); got != tt.want {
				t.Errorf("Generation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObjectID_Index(t *testing.T) {
	tests := []struct {
		name string
		id   ObjectID
		want uint32
	}{
		{"Index zero", ObjectID(0), 0},
		{"Index simple", ObjectID(42), 42},
		{"Index max", ObjectID(maskIndex), maskIndex},
		{"Index masked correctly", ObjectID(uint64(maskIndex) | (1 << shiftGen)), maskIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Index(); got != tt.want {
				t.Errorf("Index() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPackObjectID_RoundTrip(t *testing.T) {
	id := PackObjectID(5, enums.ObjectKindLight, 7, 1234)

	if id.Shard() != 5 {
		t.Errorf("Shard() = %d, want 5", id.Shard())
	}
	if id.Kind() != enums.ObjectKindLight {
		t.Errorf("Kind() = %v, want LIGHT", id.Kind())
	}
	if id.Generation() != 7 {
		t.Errorf("Generation() = %d, want 7", id.Generation())
	}
	if id.Index() != 1234 {
		t.Errorf("Index() = %d, want 1234", id.Index())
	}
}

func TestObjectID_GenerationDistinguishesReusedSlot(t *testing.T) {
	first := PackObjectID(0, enums.ObjectKindPrimitive, 1, 9)
	reused := PackObjectID(0, enums.ObjectKindPrimitive, 2, 9)

	if first == reused {
		t.Fatal("ids for different generations of the same slot must differ")
	}
	if first.Index() != reused.Index() {
		t.Fatal("slot index should be preserved across generations")
	}
}

func TestObjectID_IsNil(t *testing.T) {
	tests := []struct {
		name string
		id   ObjectID
		want bool
	}{
		{"Zero is Nil", 0, true},
		{"NilObjectID constant", NilObjectID, true},
		{"Non-zero is not Nil", PackObjectID(1, enums.ObjectKindLight, 1, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.IsNil(); got != tt.want {
				t.Errorf("IsNil() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObjectID_JSON(t *testing.T) {
	id := PackObjectID(1, enums.ObjectKindLight, 3, 4)

	data, err := id.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte(`"`)) {
		t.Errorf("MarshalJSON() = %s, want quoted string", data)
	}

	var back ObjectID
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if back != id {
		t.Errorf("UnmarshalJSON() = %v, want %v", back, id)
	}

	var fromNumber ObjectID
	if err := fromNumber.UnmarshalJSON([]byte(`123`)); err != nil {
		t.Fatalf("UnmarshalJSON(number) error = %v", err)
	}
	if fromNumber != ObjectID(123) {
		t.Errorf("UnmarshalJSON(number) = %d, want 123", fromNumber)
	}

	var empty ObjectID = 99
	if err := empty.UnmarshalJSON([]byte(`""`)); err != nil {
		t.Fatalf("UnmarshalJSON(empty) error = %v", err)
	}
	if !empty.IsNil() {
		t.Errorf("UnmarshalJSON(empty) = %v, want nil id", empty)
	}

	if err := back.UnmarshalJSON([]byte(`"abc"`)); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestObjectID_String(t *testing.T) {
	if got := NilObjectID.String(); got != "<nil>" {
		t.Errorf("String() = %q, want <nil>", got)
	}
	if got := PackObjectID(1, enums.ObjectKindLight, 2, 3).String(); got != "[shard=1 kind=LIGHT gen=2 idx=3]" {
		t.Errorf("String() = %q", got)
	}
}
