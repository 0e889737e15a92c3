package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fuomag9/colive-web/internal/config"
	"github.com/fuomag9/colive-web/internal/models"
)

var (
	// ErrNotFound is returned for missing, expired and already consumed records
	ErrNotFound = errors.New("store: record not found")
	// ErrUnavailable wraps backend failures
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store persists the short-lived state that spans requests of one flow
type Store interface {
	SaveSession(ctx context.Context, session *models.FlowSession) error
	GetSession(ctx context.Context, id string) (*models.FlowSession, error)
	DeleteSession(ctx context.Context, id string) error

	SaveTicket(ctx context.Context, ticket *models.HandoffTicket) error
	// ConsumeTicket returns the ticket and removes it; a second call returns ErrNotFound
	ConsumeTicket(ctx context.Context, id string) (*models.HandoffTicket, error)

	// PurgeExpired removes every record that expired before now
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	Close() error
}

// New opens the store selected by cfg.Driver
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.StoreMemory, "":
		return NewMemory(), nil
	case config.StoreRedis:
		return OpenRedis(cfg.RedisURL)
	case config.StorePostgres:
		return OpenPostgres(cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
