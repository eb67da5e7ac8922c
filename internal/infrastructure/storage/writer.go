package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/internal/domain"
)

const (
	MagicHeader string = `LMCP` // 4 байта
	Version1    uint32 = 1
)

// DefaultLimit - сколько кадров держит запись в памяти.
const DefaultLimit = 100_000

// CaptureFileHeader - точное представление заголовка файла в памяти.
// binary.Write пишет его целиком: только массивы и числа.
type CaptureFileHeader struct {
	Magic      [4]byte // 4 байта
	Version    uint32  // 4 байта
	Seed       int64   // 8 байт
	Started    int64   // 8 байт, unix ms
	FrameCount int32   // 4 байта
	Dropped    int32   // 4 байта
}

// RecordHeader - заголовок каждого кадра в файле.
type RecordHeader struct {
	OffsetMs uint32 // 4, от начала записи
	SubLen   uint8  // 1
	FrameLen uint16 // 2
}

// Record - один отправленный кадр.
type Record struct {
	Offset     time.Duration
	Subscriber domain.SubscriberID
	Frame      []byte
}

// Capture - запись исходящего трафика сервера.
type Capture struct {
	Seed    int64
	Started time.Time
	Records []Record
	// Dropped - кадры сверх лимита, не попавшие в запись.
	Dropped int
}

// Sender - то, куда Recorder передает кадры дальше (обычно network.Hub).
type Sender interface {
	Send(sub domain.SubscriberID, frame []byte) error
}

// Recorder оборачивает транспорт и копирует каждый кадр в Capture.
// Записываются только кадры, принятые транспортом.
type Recorder struct {
	mu    sync.Mutex
	next  Sender
	limit int
	now   func() time.Time
	cap   Capture
}

func NewRecorder(next Sender, seed int64, limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	r := &Recorder{next: next, limit: limit, now: time.Now}
	r.cap = Capture{Seed: seed, Started: r.now()}
	return r
}

// Send реализует replication.Transport.
func (r *Recorder) Send(sub domain.SubscriberID, frame []byte) error {
	if err := r.next.Send(sub, frame); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := Record{
		Offset:     r.now().Sub(r.cap.Started),
		Subscriber: sub,
		Frame:      frame,
	}
	if len(r.cap.Records) >= r.limit || !Recordable(rec) {
		r.cap.Dropped++
		return nil
	}
	rec.Frame = append([]byte(nil), frame...)
	r.cap.Records = append(r.cap.Records, rec)
	return nil
}

// Пределы полей RecordHeader.
const (
	MaxSubscriberLen = math.MaxUint8
	MaxFrameLen      = math.MaxUint16
	MaxOffset        = time.Duration(math.MaxUint32) * time.Millisecond
)

// Recordable - запись укладывается в RecordHeader без переполнения.
func Recordable(rec Record) bool {
	return len(rec.Subscriber) <= MaxSubscriberLen &&
		len(rec.Frame) <= MaxFrameLen &&
		rec.Offset >= 0 && rec.Offset <= MaxOffset
}

// Snapshot возвращает копию накопленной записи.
func (r *Recorder) Snapshot() Capture {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cap
	c.Records = append([]Record(nil), r.cap.Records...)
	return c
}

// Save пишет запись в файл, создавая каталог при необходимости.
func (r *Recorder) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	c := r.Snapshot()
	if err := WriteCapture(w, &c); err != nil {
		return err
	}
	return w.Flush()
}

// WriteCapture сериализует запись в бинарный формат.
// Записи, не укладывающиеся в RecordHeader, пропускаются и считаются в Dropped.
func WriteCapture(w io.Writer, c *Capture) error {
	records := make([]Record, 0, len(c.Records))
	for _, rec := range c.Records {
		if Recordable(rec) {
			records = append(records, rec)
		}
	}

	// 1. Заголовок
	header := CaptureFileHeader{
		Version:    Version1,
		Seed:       c.Seed,
		Started:    c.Started.UnixMilli(),
		FrameCount: int32(len(records)),
		Dropped:    int32(c.Dropped + len(c.Records) - len(records)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// 2. Кадры
	for i, rec := range records {
		rh := RecordHeader{
			OffsetMs: uint32(rec.Offset.Milliseconds()),
			SubLen:   uint8(len(rec.Subscriber)),
			FrameLen: uint16(len(rec.Frame)),
		}
		if err := binary.Write(w, binary.LittleEndian, &rh); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := io.WriteString(w, string(rec.Subscriber)); err != nil {
			return err
		}
		if _, err := w.Write(rec.Frame); err != nil {
			return err
		}
	}
	return nil
}
