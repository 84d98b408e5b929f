package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/infra/database/models"
)

type ManifestationRepository struct {
	db            *gorm.DB
	location      *time.Location
	retainHistory bool
}

func NewManifestationRepository(db *gorm.DB, location *time.Location, retainHistory bool) *ManifestationRepository {
	if location == nil {
		location = time.UTC
	}
	return &ManifestationRepository{db: db, location: location, retainHistory: retainHistory}
}

func (r *ManifestationRepository) GetCurrent(ctx context.Context, date time.Time) ([]domain.Manifestation, error) {
	var rows []models.Manifestation
	err := r.db.WithContext(ctx).
		Where("day = ?", r.dayKey(date)).
		Order("slot ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "ManifestationRepository.GetCurrent")
	}

	result := make([]domain.Manifestation, 0, len(rows))
	for _, row := range rows {
		m, err := r.toDomain(row)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

// Replace stores m as the only row of its slot, whatever day the previous
// row belonged to. The upsert is a single statement, so a slot is never left
// without a row.
func (r *ManifestationRepository) Replace(ctx context.Context, m domain.Manifestation) (domain.Manifestation, error) {
	if !m.Slot.Valid() {
		return domain.Manifestation{}, errors.Wrapf(domain.ErrUnknownSlot, "slot %q", m.Slot)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	row := r.fromDomain(m)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"id", "type", "day", "title", "content", "author", "fallback", "model", "c_date", "m_date",
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		if !r.retainHistory {
			return nil
		}

		history := models.ManifestationHistory{
			ID:       row.ID,
			Slot:     row.Slot,
			Type:     row.Type,
			Day:      row.Day,
			Title:    row.Title,
			Content:  row.Content,
			Author:   row.Author,
			Fallback: row.Fallback,
			Model:    row.Model,
			CDate:    row.CDate,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&history).Error
	})
	if err != nil {
		return domain.Manifestation{}, errors.Wrapf(err, "ManifestationRepository.Replace slot %s", m.Slot)
	}

	return r.toDomain(row)
}

// GetRecent lists the newest rows, reading history when it is retained.
func (r *ManifestationRepository) GetRecent(ctx context.Context, limit int) ([]domain.Manifestation, error) {
	if r.retainHistory {
		var rows []models.ManifestationHistory
		err := r.db.WithContext(ctx).
			Order("day DESC").
			Order("slot ASC").
			Order("c_date DESC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return nil, errors.Wrap(err, "ManifestationRepository.GetRecent")
		}

		result := make([]domain.Manifestation, 0, len(rows))
		for _, h := range rows {
			m, err := r.toDomain(models.Manifestation{
				Slot:     h.Slot,
				ID:       h.ID,
				Type:     h.Type,
				Day:      h.Day,
				Title:    h.Title,
				Content:  h.Content,
				Author:   h.Author,
				Fallback: h.Fallback,
				Model:    h.Model,
				CDate:    h.CDate,
			})
			if err != nil {
				return nil, err
			}
			result = append(result, m)
		}
		return result, nil
	}

	var rows []models.Manifestation
	err := r.db.WithContext(ctx).
		Order("day DESC").
		Order("slot ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "ManifestationRepository.GetRecent")
	}

	result := make([]domain.Manifestation, 0, len(rows))
	for _, row := range rows {
		m, err := r.toDomain(row)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

func (r *ManifestationRepository) dayKey(date time.Time) string {
	return date.In(r.location).Format(time.DateOnly)
}

func (r *ManifestationRepository) fromDomain(m domain.Manifestation) models.Manifestation {
	return models.Manifestation{
		Slot:     string(m.Slot),
		ID:       m.ID.String(),
		Type:     string(m.Type),
		Day:      r.dayKey(m.Date),
		Title:    m.Title,
		Content:  m.Content,
		Author:   m.Author,
		Fallback: m.Fallback,
		Model:    m.Model,
		CDate:    m.CreatedAt,
		MDate:    time.Now(),
	}
}

func (r *ManifestationRepository) toDomain(row models.Manifestation) (domain.Manifestation, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Manifestation{}, errors.Wrapf(err, "invalid manifestation id %q", row.ID)
	}
	date, err := time.ParseInLocation(time.DateOnly, row.Day, r.location)
	if err != nil {
		return domain.Manifestation{}, errors.Wrapf(err, "invalid manifestation day %q", row.Day)
	}
	return domain.Manifestation{
		ID:        id,
		Slot:      domain.Slot(row.Slot),
		Type:      domain.ContentType(row.Type),
		Date:      date,
		Title:     row.Title,
		Content:   row.Content,
		Author:    row.Author,
		Fallback:  row.Fallback,
		Model:     row.Model,
		CreatedAt: row.CDate,
	}, nil
}
