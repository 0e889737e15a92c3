package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fuomag9/colive-web/internal/config"
	"github.com/fuomag9/colive-web/internal/database"
	"github.com/fuomag9/colive-web/internal/models"
)

// Postgres keeps records in the flow_sessions and handoff_tickets tables
type Postgres struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenPostgres connects with cfg. Migrations are run separately.
func OpenPostgres(cfg config.DatabaseConfig) (*Postgres, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return NewPostgres(db), nil
}

// NewPostgres wraps an open connection
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func (s *Postgres) SaveSession(ctx context.Context, session *models.FlowSession) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(session).Error
	if err != nil {
		return unavailable("save session", err)
	}
	return nil
}

func (s *Postgres) GetSession(ctx context.Context, id string) (*models.FlowSession, error) {
	var session models.FlowSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, s.now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get session", err)
	}
	return &session, nil
}

func (s *Postgres) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FlowSession{}).Error; err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

func (s *Postgres) SaveTicket(ctx context.Context, ticket *models.HandoffTicket) error {
	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return unavailable("save ticket", err)
	}
	return nil
}

// ConsumeTicket deletes the row and reads it back in one statement so that
// concurrent consumers cannot both win
func (s *Postgres) ConsumeTicket(ctx context.Context, id string) (*models.HandoffTicket, error) {
	var deleted []models.HandoffTicket
	result := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Delete(&deleted)
	if result.Error != nil {
		return nil, unavailable("consume ticket", result.Error)
	}
	if result.RowsAffected == 0 || len(deleted) == 0 {
		return nil, ErrNotFound
	}

	ticket := deleted[0]
	if ticket.IsExpired(s.now()) {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (s *Postgres) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("expires_at <= ?", now).Delete(&models.FlowSession{})
		if result.Error != nil {
			return result.Error
		}
		purged += result.RowsAffected

		result = tx.Where("expires_at <= ?", now).Delete(&models.HandoffTicket{})
		if result.Error != nil {
			return result.Error
		}
		purged += result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge expired records: %w", err)
	}
	return purged, nil
}

func (s *Postgres) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
