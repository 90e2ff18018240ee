package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OkarFabianTheWise/nifes/internal/apperr"
	"github.com/OkarFabianTheWise/nifes/internal/models"
	"github.com/OkarFabianTheWise/nifes/internal/store"

	"gorm.io/gorm"
)

// ErrAlreadyRecorded is returned by Record when the (session, member) pair
// already exists.
var ErrAlreadyRecorded = errors.New("attendance already recorded")

// Ledger stores attendance records. Records are never updated.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Find returns the record for the pair, or nil when there is none.
func (l *Ledger) Find(ctx context.Context, sessionID string, memberID uint) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := l.db.WithContext(ctx).Where("session_id = ? AND member_id = ?", sessionID, memberID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &rec, nil
}

// Record inserts a present record for the pair. The record is flagged as
// first-time when the member has no other record in any session. The unique
// index on the pair decides concurrent inserts; the loser gets
// ErrAlreadyRecorded.
func (l *Ledger) Record(ctx context.Context, sessionID string, memberID uint) (models.AttendanceRecord, error) {
	now := l.now()
	rec := models.AttendanceRecord{
		SessionID: sessionID,
		MemberID:  memberID,
		Status:    models.StatusPresent,
		ScanTime:  now,
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior int64
		if err := tx.Model(&models.AttendanceRecord{}).Where("member_id = ?", memberID).Count(&prior).Error; err != nil {
			return fmt.Errorf("count prior attendance: %w", err)
		}
		rec.IsFirstTime = prior == 0
		return tx.Create(&rec).Error
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return models.AttendanceRecord{}, fmt.Errorf("%w: %w", ErrAlreadyRecorded,
				apperr.Conflict(err, "member %d already recorded for session %s", memberID, sessionID))
		}
		return models.AttendanceRecord{}, fmt.Errorf("record attendance: %w", err)
	}
	return rec, nil
}

// Current lists records with member and session joined, newest scan first.
// An empty sessionID lists every session.
func (l *Ledger) Current(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	q := l.db.WithContext(ctx).Preload("Member").Preload("Session").Order("scan_time desc, id desc")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var records []models.AttendanceRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}
