package store

import (
	"context"
	"strings"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/statemachine"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	dbsql "github.com/chris-alexander-pop/system-design-library/pkg/database/sql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageRow is the GORM model backing the messages table (§6.3).
type messageRow struct {
	ID              string `gorm:"primaryKey"`
	OwnerID         string `gorm:"index"`
	ContentText     string
	ContentMediaRef string
	TargetChannels  string // ordered, comma-joined ChannelKind list
	ScheduledAt     time.Time `gorm:"index:idx_sched_status"`
	Status          string    `gorm:"index:idx_sched_status"`
	RecipientRef    string
	CorrelationID   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Deliveries      []deliveryRow `gorm:"foreignKey:MessageID;references:ID"`
}

func (messageRow) TableName() string { return "messages" }

// deliveryRow is the GORM model backing the channel_deliveries table.
type deliveryRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	MessageID   string `gorm:"uniqueIndex:idx_msg_channel;index"`
	Channel     string `gorm:"uniqueIndex:idx_msg_channel"`
	Status      string `gorm:"index"`
	ExternalRef string
	Error       string
	DeliveredAt *time.Time
}

func (deliveryRow) TableName() string { return "channel_deliveries" }

// GormStore is the Postgres/GORM-backed MessageStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore and migrates its schema.
func NewGormStore(sqlAdapter dbsql.SQL) (*GormStore, error) {
	db := sqlAdapter.Get(context.Background())
	if err := db.AutoMigrate(&messageRow{}, &deliveryRow{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate message store schema")
	}
	return &GormStore{db: db}, nil
}

func channelsToColumn(channels []domain.ChannelKind) string {
	parts := make([]string, len(channels))
	for i, c := range channels {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func channelsFromColumn(col string) []domain.ChannelKind {
	if col == "" {
		return nil
	}
	parts := strings.Split(col, ",")
	out := make([]domain.ChannelKind, len(parts))
	for i, p := range parts {
		out[i] = domain.ChannelKind(p)
	}
	return out
}

func toRow(m *domain.Message) messageRow {
	deliveries := make([]deliveryRow, len(m.Deliveries))
	for i, d := range m.Deliveries {
		deliveries[i] = deliveryRow{
			MessageID:   m.ID,
			Channel:     string(d.Channel),
			Status:      string(d.Status),
			ExternalRef: d.ExternalRef,
			Error:       d.Error,
			DeliveredAt: d.DeliveredAt,
		}
	}
	return messageRow{
		ID:              m.ID,
		OwnerID:         m.OwnerID,
		ContentText:     m.Content.Text(),
		ContentMediaRef: m.Content.MediaRef(),
		TargetChannels:  channelsToColumn(m.TargetChannels),
		ScheduledAt:     m.ScheduledAt,
		Status:          string(m.Status),
		RecipientRef:    m.RecipientRef,
		CorrelationID:   m.CorrelationID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Deliveries:      deliveries,
	}
}

func fromRow(row messageRow) (*domain.Message, error) {
	content, err := domain.NewContent(row.ContentText, row.ContentMediaRef)
	if err != nil {
		return nil, err
	}
	deliveries := make([]domain.Delivery, len(row.Deliveries))
	for i, d := range row.Deliveries {
		deliveries[i] = domain.Delivery{
			Channel:     domain.ChannelKind(d.Channel),
			Status:      domain.DeliveryStatus(d.Status),
			ExternalRef: d.ExternalRef,
			Error:       d.Error,
			DeliveredAt: d.DeliveredAt,
		}
	}
	return &domain.Message{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Content:        content,
		TargetChannels: channelsFromColumn(row.TargetChannels),
		ScheduledAt:    row.ScheduledAt,
		Status:         domain.MessageStatus(row.Status),
		RecipientRef:   row.RecipientRef,
		Deliveries:     deliveries,
		CorrelationID:  row.CorrelationID,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (s *GormStore) Save(ctx context.Context, m *domain.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing messageRow
		err := tx.Preload("Deliveries").First(&existing, "id = ?", m.ID).Error
		if err == gorm.ErrRecordNotFound {
			row := toRow(m)
			return tx.Create(&row).Error
		}
		if err != nil {
			return errors.Wrap(err, "failed to load existing message")
		}

		if err := tx.Model(&existing).Updates(map[string]interface{}{
			"status":     string(m.Status),
			"updated_at": m.UpdatedAt,
		}).Error; err != nil {
			return errors.Wrap(err, "failed to update message status")
		}

		for _, d := range m.Deliveries {
			var row deliveryRow
			err := tx.Where("message_id = ? AND channel = ?", m.ID, string(d.Channel)).First(&row).Error
			if err != nil {
				continue
			}
			if domain.DeliveryStatus(row.Status).Terminal() {
				continue // I3: never overwrite a terminal delivery
			}
			if err := tx.Model(&row).Updates(map[string]interface{}{
				"status":       string(d.Status),
				"external_ref": d.ExternalRef,
				"error":        d.Error,
				"delivered_at": d.DeliveredAt,
			}).Error; err != nil {
				return errors.Wrap(err, "failed to update delivery")
			}
		}
		return nil
	})
}

func (s *GormStore) Get(ctx context.Context, id string) (*domain.Message, bool, error) {
	var row messageRow
	err := s.db.WithContext(ctx).Preload("Deliveries").First(&row, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to load message")
	}
	m, err := fromRow(row)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// ClaimDue atomically selects and transitions due messages using
// SELECT ... FOR UPDATE SKIP LOCKED, so concurrent Dispatcher replicas
// never observe overlapping rows (§4.2).
func (s *GormStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]ClaimedMessage, error) {
	var claimed []ClaimedMessage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []messageRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND scheduled_at <= ?", string(domain.StatusScheduled), now).
			Order("scheduled_at ASC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return errors.Wrap(err, "failed to select due messages")
		}

		for _, row := range rows {
			next, err := statemachine.Claim(domain.MessageStatus(row.Status))
			if err != nil {
				return err
			}
			if err := tx.Model(&messageRow{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
				"status":     string(next),
				"updated_at": now,
			}).Error; err != nil {
				return errors.Wrap(err, "failed to claim message")
			}
			claimed = append(claimed, ClaimedMessage{
				ID:            row.ID,
				Channels:      channelsFromColumn(row.TargetChannels),
				CorrelationID: row.CorrelationID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *GormStore) MarkDelivery(ctx context.Context, id string, channelKind domain.ChannelKind, outcome DeliveryOutcome) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row deliveryRow
		if err := tx.Where("message_id = ? AND channel = ?", id, string(channelKind)).First(&row).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NotFound("no delivery row for channel "+string(channelKind), nil)
			}
			return errors.Wrap(err, "failed to load delivery")
		}
		if domain.DeliveryStatus(row.Status).Terminal() {
			return nil // P8: replaying a terminal outcome is a no-op
		}

		delivery := domain.Delivery{Status: domain.DeliveryStatus(row.Status)}
		if err := statemachine.TransitionDelivery(&delivery, outcome.Status, outcome.ExternalRef, outcome.Error, outcome.At); err != nil {
			return err
		}
		if err := tx.Model(&row).Where("status = ?", row.Status).Updates(map[string]interface{}{
			"status":       string(delivery.Status),
			"external_ref": delivery.ExternalRef,
			"error":        delivery.Error,
			"delivered_at": delivery.DeliveredAt,
		}).Error; err != nil {
			return errors.Wrap(err, "failed to write delivery outcome")
		}

		var allRows []deliveryRow
		if err := tx.Where("message_id = ?", id).Find(&allRows).Error; err != nil {
			return errors.Wrap(err, "failed to reload deliveries")
		}
		deliveries := make([]domain.Delivery, len(allRows))
		for i, r := range allRows {
			deliveries[i] = domain.Delivery{Channel: domain.ChannelKind(r.Channel), Status: domain.DeliveryStatus(r.Status)}
		}

		var msg messageRow
		if err := tx.First(&msg, "id = ?", id).Error; err != nil {
			return errors.Wrap(err, "failed to load message for status derivation")
		}
		nextStatus := statemachine.DeriveMessageStatus(domain.MessageStatus(msg.Status), deliveries)
		return tx.Model(&msg).Updates(map[string]interface{}{
			"status":     string(nextStatus),
			"updated_at": outcome.At,
		}).Error
	})
}

var _ MessageStore = (*GormStore)(nil)
