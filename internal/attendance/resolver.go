// Package attendance records who was present at which session and decides,
// for every scan, whether a member is created and whether attendance is new.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OkarFabianTheWise/nifes/internal/apperr"
	"github.com/OkarFabianTheWise/nifes/internal/members"
	"github.com/OkarFabianTheWise/nifes/internal/models"
)

// Outcome is the terminal state of a scan.
type Outcome string

const (
	OutcomeRecorded        Outcome = "recorded"
	OutcomeAlreadyRecorded Outcome = "already_recorded"
	// OutcomeRegistered is used by Register when no session was given.
	OutcomeRegistered Outcome = "registered"
)

const (
	msgNewMemberPresent = "New member registered and marked present"
	msgRecorded         = "Attendance recorded"
	msgAlreadyRecorded  = "Attendance already recorded for this session"
	msgMemberRegistered = "Member registered successfully"
	msgMemberExists     = "Member already registered"
)

// MemberResolver resolves contact details to a member.
type MemberResolver interface {
	FindOrCreate(ctx context.Context, c members.Candidate) (models.Member, bool, error)
}

// SessionLookup fetches a session by id.
type SessionLookup interface {
	Get(ctx context.Context, id string) (models.Session, error)
}

// Recorder is the attendance ledger surface used by the resolver.
type Recorder interface {
	Find(ctx context.Context, sessionID string, memberID uint) (*models.AttendanceRecord, error)
	Record(ctx context.Context, sessionID string, memberID uint) (models.AttendanceRecord, error)
}

type ScanRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func (r ScanRequest) candidate() members.Candidate {
	return members.Candidate{Name: r.Name, Email: r.Email, Phone: r.Phone, Address: r.Address}
}

type ScanResult struct {
	Outcome    Outcome                  `json:"outcome"`
	Message    string                   `json:"message"`
	NewMember  bool                     `json:"newMember"`
	Member     models.Member            `json:"member"`
	Attendance *models.AttendanceRecord `json:"attendance,omitempty"`
}

type Resolver struct {
	members  MemberResolver
	sessions SessionLookup
	ledger   Recorder
}

func NewResolver(m MemberResolver, s SessionLookup, l Recorder) *Resolver {
	return &Resolver{members: m, sessions: s, ledger: l}
}

// Scan marks the scanning person present at the session. Repeating a scan
// yields OutcomeAlreadyRecorded without writing anything.
func (r *Resolver) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	c := req.candidate().Normalize()
	if req.SessionID == "" {
		return ScanResult{}, apperr.Validation("sessionId is required")
	}
	if !c.HasContact() {
		return ScanResult{}, apperr.Validation("phone or email is required")
	}
	if _, err := r.sessions.Get(ctx, req.SessionID); err != nil {
		return ScanResult{}, err
	}

	member, created, err := r.members.FindOrCreate(ctx, c)
	if err != nil {
		return ScanResult{}, err
	}

	existing, err := r.ledger.Find(ctx, req.SessionID, member.ID)
	if err != nil {
		return ScanResult{}, err
	}
	if existing != nil {
		return alreadyRecorded(member, created, existing), nil
	}

	rec, err := r.ledger.Record(ctx, req.SessionID, member.ID)
	if errors.Is(err, ErrAlreadyRecorded) {
		// A concurrent scan inserted the pair after our Find.
		winner, ferr := r.ledger.Find(ctx, req.SessionID, member.ID)
		if ferr != nil {
			return ScanResult{}, ferr
		}
		return alreadyRecorded(member, created, winner), nil
	}
	if err != nil {
		return ScanResult{}, fmt.Errorf("scan session %s member %d: %w", req.SessionID, member.ID, err)
	}

	msg := msgRecorded
	if created {
		msg = msgNewMemberPresent
	}
	return ScanResult{
		Outcome:    OutcomeRecorded,
		Message:    msg,
		NewMember:  created,
		Member:     member,
		Attendance: &rec,
	}, nil
}

// Register adds a member. With a session id it behaves exactly like Scan;
// without one it only resolves or creates the member.
func (r *Resolver) Register(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if strings.TrimSpace(req.SessionID) != "" {
		return r.Scan(ctx, req)
	}
	member, created, err := r.members.FindOrCreate(ctx, req.candidate())
	if err != nil {
		return ScanResult{}, err
	}
	msg := msgMemberExists
	if created {
		msg = msgMemberRegistered
	}
	return ScanResult{Outcome: OutcomeRegistered, Message: msg, NewMember: created, Member: member}, nil
}

func alreadyRecorded(m models.Member, created bool, rec *models.AttendanceRecord) ScanResult {
	return ScanResult{
		Outcome:    OutcomeAlreadyRecorded,
		Message:    msgAlreadyRecorded,
		NewMember:  created,
		Member:     m,
		Attendance: rec,
	}
}
