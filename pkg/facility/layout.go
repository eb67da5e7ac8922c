package facility

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// RoomSpec - комната в файле раскладки.
type RoomSpec struct {
	ID       string      `json:"id" msgpack:"id"`
	Name     string      `json:"name,omitempty" msgpack:"name,omitempty"`
	Kind     string      `json:"kind" msgpack:"kind"`
	Zone     string      `json:"zone,omitempty" msgpack:"zone,omitempty"`
	Position domain.Vec3 `json:"position" msgpack:"position"`
	Size     domain.Vec3 `json:"size,omitempty" msgpack:"size,omitempty"`
	Special  bool        `json:"special,omitempty" msgpack:"special,omitempty"`

	// Far задает дальних соседей явно вместо радиуса.
	Far []string `json:"far,omitempty" msgpack:"far,omitempty"`
	// Fixtures переопределяет арматуру шаблона комнаты.
	Fixtures []FixturePlacement `json:"fixtures,omitempty" msgpack:"fixtures,omitempty"`
}

// LinkSpec - переход между комнатами.
type LinkSpec struct {
	From   string `json:"from" msgpack:"from"`
	To     string `json:"to" msgpack:"to"`
	OneWay bool   `json:"oneWay,omitempty" msgpack:"oneWay,omitempty"`
}

// Layout - сериализуемое описание комплекса.
type Layout struct {
	Name      string     `json:"name" msgpack:"name"`
	FarRadius int        `json:"farRadius" msgpack:"farRadius"`
	Rooms     []RoomSpec `json:"rooms" msgpack:"rooms"`
	Links     []LinkSpec `json:"links" msgpack:"links"`
}

// Format - формат файла раскладки.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// FormatOf определяет формат по расширению файла.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".mpk", ".msgpack":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unsupported layout extension %q", filepath.Ext(path))
	}
}

// Marshal кодирует раскладку.
func (l Layout) Marshal(f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(l, "", "  ")
	case FormatMsgpack:
		return msgpack.Marshal(l)
	default:
		return nil, fmt.Errorf("unknown layout format %q", f)
	}
}

// ParseLayout декодирует раскладку.
func ParseLayout(data []byte, f Format) (Layout, error) {
	var l Layout
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &l)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &l)
	default:
		err = fmt.Errorf("unknown layout format %q", f)
	}
	if err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	return l, nil
}

// LoadLayout читает раскладку из файла .json или .mpk.
func LoadLayout(path string) (Layout, error) {
	f, err := FormatOf(path)
	if err != nil {
		return Layout{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data, f)
}

// SaveLayout пишет раскладку в файл, формат по расширению.
func SaveLayout(path string, l Layout) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := l.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
