package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит параметры запуска движка
type Config struct {
	// Seed - зерно генератора демо-раскладки.
	Seed    int64
	ShardID uint8

	// TickRate - частота тиков в Гц.
	TickRate int
	// SubscriptionPeriod - как часто пересчитывается членство клиентов в группах.
	SubscriptionPeriod time.Duration
	// FarRadius - сколько переходов по графу считаются "рядом".
	FarRadius int

	// Путевые огни
	SettleDelay     time.Duration
	PhaseDuration   time.Duration
	PhaseCount      int
	EvacuationPhase int
	LockdownPhase   int
	CheckpointKind  string
	ExitKind        string

	// InboxSize - емкость входных каналов движка.
	InboxSize int
}

// NewConfig создает конфиг по умолчанию (случайный сид)
func NewConfig() Config {
	return Config{
		Seed:               time.Now().UnixNano(),
		ShardID:            0,
		TickRate:           30,
		SubscriptionPeriod: time.Second,
		FarRadius:          2,
		SettleDelay:        500 * time.Millisecond,
		PhaseDuration:      250 * time.Millisecond,
		PhaseCount:         4,
		EvacuationPhase:    5,
		LockdownPhase:      6,
		CheckpointKind:     "CHECKPOINT",
		ExitKind:           "EXIT",
		InboxSize:          256,
	}
}

// TickInterval - длительность одного тика.
func (c Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.TickRate)
}

// Validate проверяет значения, без которых движок не работает.
func (c Config) Validate() error {
	switch {
	case c.TickRate <= 0 || c.TickRate > 1000:
		return fmt.Errorf("tick rate %d out of range", c.TickRate)
	case c.SubscriptionPeriod <= 0:
		return errors.New("subscription period must be positive")
	case c.FarRadius < 1:
		return errors.New("far radius must be at least 1")
	case c.PhaseCount < 1:
		return errors.New("phase count must be at least 1")
	case c.PhaseDuration <= 0:
		return errors.New("phase duration must be positive")
	case c.InboxSize < 1:
		return errors.New("inbox size must be at least 1")
	}
	return nil
}

// LoadConfig читает необязательный .env и переменные LIGHTS_* поверх значений по умолчанию.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := NewConfig()
	var errs []error
	envInt64(&cfg.Seed, "LIGHTS_SEED", &errs)
	envUint8(&cfg.ShardID, "LIGHTS_SHARD", &errs)
	envInt(&cfg.TickRate, "LIGHTS_TICK_RATE", &errs)
	envDuration(&cfg.SubscriptionPeriod, "LIGHTS_SUBSCRIPTION_PERIOD", &errs)
	envInt(&cfg.FarRadius, "LIGHTS_FAR_RADIUS", &errs)
	envDuration(&cfg.SettleDelay, "LIGHTS_SETTLE_DELAY", &errs)
	envDuration(&cfg.PhaseDuration, "LIGHTS_PHASE_DURATION", &errs)
	envInt(&cfg.PhaseCount, "LIGHTS_PHASE_COUNT", &errs)
	envInt(&cfg.EvacuationPhase, "LIGHTS_EVACUATION_PHASE", &errs)
	envInt(&cfg.LockdownPhase, "LIGHTS_LOCKDOWN_PHASE", &errs)
	envString(&cfg.CheckpointKind, "LIGHTS_CHECKPOINT_KIND")
	envString(&cfg.ExitKind, "LIGHTS_EXIT_KIND")
	envInt(&cfg.InboxSize, "LIGHTS_INBOX_SIZE", &errs)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string, errs *[]error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func envInt64(dst *int64, key string, errs *[]error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func envUint8(dst *uint8, key string, errs *[]error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = uint8(n)
	}
}

func envDuration(dst *time.Duration, key string, errs *[]error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
