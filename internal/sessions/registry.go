// Package sessions tracks attendance sessions and which one is current.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OkarFabianTheWise/nifes/internal/apperr"
	"github.com/OkarFabianTheWise/nifes/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Renderer turns a QR payload into an image data URL.
type Renderer interface {
	DataURL(content string) (string, error)
}

// Created is a freshly activated session with its rendered QR code.
type Created struct {
	models.Session
	QRCodeImage string `json:"qrCodeImage"`
}

type Registry struct {
	db          *gorm.DB
	renderer    Renderer
	frontendURL string
	now         func() time.Time
}

func NewRegistry(db *gorm.DB, renderer Renderer, frontendURL string) *Registry {
	return &Registry{
		db:          db,
		renderer:    renderer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// QRPayload is the URL printed on the session QR code.
func (r *Registry) QRPayload(sessionID string) string {
	return fmt.Sprintf("%s/attend/%s", r.frontendURL, sessionID)
}

// Create deactivates every session and inserts name as the new active one
// in the same transaction, then renders its QR code.
func (r *Registry) Create(ctx context.Context, name string) (Created, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Created{}, apperr.Validation("session name is required")
	}
	now := r.now()
	s := models.Session{
		ID:       uuid.NewString(),
		Name:     name,
		Date:     now,
		IsActive: true,
	}
	s.QRData = r.QRPayload(s.ID)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Session{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate sessions: %w", err)
		}
		if err := tx.Create(&s).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return Created{}, err
	}

	img, err := r.renderer.DataURL(s.QRData)
	if err != nil {
		return Created{Session: s}, fmt.Errorf("render qr for session %s: %w", s.ID, err)
	}
	return Created{Session: s, QRCodeImage: img}, nil
}

// Active returns the current session, or nil when none was ever created.
func (r *Registry) Active(ctx context.Context) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at desc").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return &s, nil
}

func (r *Registry) Get(ctx context.Context, id string) (models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Session{}, apperr.NotFound("session not found")
		}
		return models.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// Stats counts who was present at the session, how many of them were
// first-timers, and how many registered members were absent.
func (r *Registry) Stats(ctx context.Context, id string) (models.SessionStats, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return models.SessionStats{}, err
	}
	db := r.db.WithContext(ctx)
	st := models.SessionStats{SessionID: id}
	if err := db.Model(&models.AttendanceRecord{}).Where("session_id = ?", id).Count(&st.Total).Error; err != nil {
		return models.SessionStats{}, fmt.Errorf("count present: %w", err)
	}
	if err := db.Model(&models.AttendanceRecord{}).Where("session_id = ? AND is_first_time = ?", id, true).Count(&st.FirstTimers).Error; err != nil {
		return models.SessionStats{}, fmt.Errorf("count first-timers: %w", err)
	}
	var members int64
	if err := db.Model(&models.Member{}).Count(&members).Error; err != nil {
		return models.SessionStats{}, fmt.Errorf("count members: %w", err)
	}
	if members > st.Total {
		st.Absent = members - st.Total
	}
	return st, nil
}
