package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/msomdec/tempo/internal/domain"
)

// SessionModel is one screen's cached copy of the gym session logged on a
// date. A date without a session is a normal state: Session stays nil and the
// row is created on the first edit. SessionModel is not safe for concurrent
// use; a screen serializes access to it.
type SessionModel struct {
	sessions domain.GymSessionRepository
	userID   string
	date     string

	Session *domain.GymSession
	Err     string
}

func NewSessionModel(sessions domain.GymSessionRepository, userID, date string) *SessionModel {
	return &SessionModel{sessions: sessions, userID: userID, date: date}
}

func (m *SessionModel) Date() string {
	return m.date
}

// Found reports whether a session exists for the date.
func (m *SessionModel) Found() bool {
	return m.Session != nil
}

// Fetch loads the session. A failed fetch keeps the previous copy.
func (m *SessionModel) Fetch(ctx context.Context) {
	m.Err = ""
	session, err := m.sessions.GetByDate(ctx, m.userID, m.date)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.Session = nil
			return
		}
		slog.Error("fetch session", "date", m.date, "error", err)
		m.Err = err.Error()
		return
	}
	m.Session = session
}

// Create inserts an empty session for the date.
func (m *SessionModel) Create(ctx context.Context) Result {
	session := &domain.GymSession{UserID: m.userID, SessionDate: m.date}
	if err := m.sessions.Create(ctx, session); err != nil {
		slog.Error("create session", "date", m.date, "error", err)
		return fail(err.Error())
	}
	m.Session = session
	return ok()
}

// Update writes the fields present in patch and merges the stored row back.
func (m *SessionModel) Update(ctx context.Context, patch domain.GymSessionUpdate) Result {
	if m.Session == nil {
		return fail("No session")
	}
	if patch.Empty() {
		return ok()
	}
	updated, err := m.sessions.Update(ctx, m.userID, m.Session.ID, patch)
	if err != nil {
		slog.Error("update session", "id", m.Session.ID, "error", err)
		return fail(err.Error())
	}
	m.Session = updated
	return ok()
}

// Save is Update for a date that may not have a session yet; the row is
// created first when needed.
func (m *SessionModel) Save(ctx context.Context, patch domain.GymSessionUpdate) Result {
	if m.Session == nil {
		if res := m.Create(ctx); !res.Success {
			return res
		}
	}
	return m.Update(ctx, patch)
}
