package models

import "time"

const StatusPresent = "present"

type Member struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MemberCode    string    `json:"memberCode" gorm:"uniqueIndex;not null"`
	Name          string    `json:"name" gorm:"not null"`
	Email         *string   `json:"email" gorm:"uniqueIndex"`
	Phone         *string   `json:"phone" gorm:"uniqueIndex"`
	Address       string    `json:"address"`
	FirstScanDate time.Time `json:"first_scan_date"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Session is one trackable meeting. At most one row has IsActive set.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"not null"`
	Date      time.Time `json:"date"`
	QRData    string    `json:"qrData"`
	IsActive  bool      `json:"is_active" gorm:"index;not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttendanceRecord links a member to a session. The (session_id, member_id)
// pair is unique.
type AttendanceRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID   string    `json:"sessionId" gorm:"size:36;not null;uniqueIndex:idx_attendance_session_member"`
	MemberID    uint      `json:"memberId" gorm:"not null;uniqueIndex:idx_attendance_session_member;index"`
	Status      string    `json:"status" gorm:"not null;default:present"`
	ScanTime    time.Time `json:"scan_time"`
	IsFirstTime bool      `json:"is_first_time" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`

	Session *Session `json:"session,omitempty" gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Member  *Member  `json:"member,omitempty" gorm:"foreignKey:MemberID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// SessionStats are the per-session counts shown to organizers.
type SessionStats struct {
	SessionID   string `json:"sessionId"`
	Total       int64  `json:"total"`
	FirstTimers int64  `json:"firstTimers"`
	Absent      int64  `json:"absent"`
}
