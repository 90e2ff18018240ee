// Package members resolves scan contact details to member records and keeps
// email and phone unique across the store.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OkarFabianTheWise/nifes/internal/apperr"
	"github.com/OkarFabianTheWise/nifes/internal/models"
	"github.com/OkarFabianTheWise/nifes/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Candidate is the contact information supplied by a scan or registration.
type Candidate struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Normalize trims every field and lower-cases the email.
func (c Candidate) Normalize() Candidate {
	return Candidate{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

// HasContact reports whether an email or phone is present.
func (c Candidate) HasContact() bool {
	return c.Email != "" || c.Phone != ""
}

type Directory struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db, now: time.Now}
}

// FindOrCreate returns the member matching the candidate, creating one when
// nothing matches. Email is tried first, then phone, then the exact name when
// neither contact field is given. An existing member is returned unchanged,
// so a phone match is not given the new email.
func (d *Directory) FindOrCreate(ctx context.Context, c Candidate) (models.Member, bool, error) {
	c = c.Normalize()
	db := d.db.WithContext(ctx)

	var keys [][2]string
	if c.Email != "" {
		keys = append(keys, [2]string{"email", c.Email})
	}
	if c.Phone != "" {
		keys = append(keys, [2]string{"phone", c.Phone})
	}
	if len(keys) == 0 {
		if c.Name == "" {
			return models.Member{}, false, apperr.Validation("name, email or phone is required")
		}
		keys = append(keys, [2]string{"name", c.Name})
	}
	for _, k := range keys {
		var m models.Member
		err := db.Where(k[0]+" = ?", k[1]).Order("id asc").First(&m).Error
		if err == nil {
			return m, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Member{}, false, fmt.Errorf("lookup member by %s: %w", k[0], err)
		}
	}

	if c.Name == "" {
		return models.Member{}, false, apperr.Validation("name is required to register a new member")
	}
	now := d.now()
	m := models.Member{
		MemberCode:    newMemberCode(now),
		Name:          c.Name,
		Email:         optional(c.Email),
		Phone:         optional(c.Phone),
		Address:       c.Address,
		FirstScanDate: now,
	}
	if err := db.Create(&m).Error; err != nil {
		if store.IsUniqueViolation(err) {
			return models.Member{}, false, apperr.Conflict(err, "a member with this email or phone was registered concurrently, retry the lookup")
		}
		return models.Member{}, false, fmt.Errorf("create member: %w", err)
	}
	return m, true, nil
}

func (d *Directory) List(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := d.db.WithContext(ctx).Order("id desc").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (d *Directory) Get(ctx context.Context, id uint) (models.Member, error) {
	var m models.Member
	if err := d.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Member{}, apperr.NotFound("member not found")
		}
		return models.Member{}, fmt.Errorf("get member %d: %w", id, err)
	}
	return m, nil
}

// Delete removes the member and every attendance record that references it.
func (d *Directory) Delete(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", id).Delete(&models.AttendanceRecord{}).Error; err != nil {
			return fmt.Errorf("delete attendance of member %d: %w", id, err)
		}
		res := tx.Delete(&models.Member{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete member %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("member not found")
		}
		return nil
	})
}

func (d *Directory) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := d.db.WithContext(ctx).Model(&models.Member{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

func newMemberCode(now time.Time) string {
	return fmt.Sprintf("M%d%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
