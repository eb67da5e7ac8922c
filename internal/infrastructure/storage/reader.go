package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

var ErrInvalidMagic = errors.New("invalid magic")

// Load читает запись из файла.
func Load(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCapture(bufio.NewReader(f))
}

// ReadCapture разбирает бинарную запись.
func ReadCapture(r io.Reader) (*Capture, error) {
	// 1. Заголовок целиком
	var header CaptureFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return nil, ErrInvalidMagic
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}
	if header.FrameCount < 0 {
		return nil, fmt.Errorf("negative frame count: %d", header.FrameCount)
	}

	c := &Capture{
		Seed:    header.Seed,
		Started: time.UnixMilli(header.Started),
		Dropped: int(header.Dropped),
		Records: make([]Record, 0, header.FrameCount),
	}

	// 2. Кадры
	for i := 0; i < int(header.FrameCount); i++ {
		var rh RecordHeader
		if err := binary.Read(r, binary.LittleEndian, &rh); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		sub := make([]byte, rh.SubLen)
		if _, err := io.ReadFull(r, sub); err != nil {
			return nil, fmt.Errorf("record %d subscriber: %w", i, err)
		}
		frame := make([]byte, rh.FrameLen)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, fmt.Errorf("record %d frame: %w", i, err)
		}

		c.Records = append(c.Records, Record{
			Offset:     time.Duration(rh.OffsetMs) * time.Millisecond,
			Subscriber: domain.SubscriberID(sub),
			Frame:      frame,
		})
	}

	return c, nil
}
