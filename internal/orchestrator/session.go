package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"ccm/internal/config"
	"ccm/internal/debug"
	"ccm/internal/fsutil"
)

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionKilled    = "killed"
)

// Session records one external-tool invocation's lifecycle. The profile
// field is free text and deliberately not validated against the profile
// store.
type Session struct {
	ID          string            `json:"id"`
	Profile     string            `json:"profile"`
	ProjectPath string            `json:"projectPath,omitempty"`
	Status      string            `json:"status"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     *time.Time        `json:"endTime,omitempty"`
	PID         int               `json:"pid,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Logs        []string          `json:"logs,omitempty"`
}

// SessionManager keeps one JSON file per session.
type SessionManager struct {
	paths config.Paths
}

func NewSessionManager(paths config.Paths) *SessionManager {
	return &SessionManager{paths: paths}
}

func (m *SessionManager) Create(profileName, projectPath string, metadata map[string]string) (Session, error) {
	now := time.Now().UTC()
	s := Session{
		ID:          fmt.Sprintf("session-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Profile:     strings.TrimSpace(profileName),
		ProjectPath: strings.TrimSpace(projectPath),
		Status:      SessionActive,
		StartTime:   now,
		Metadata:    metadata,
	}
	if err := os.MkdirAll(m.paths.SessionsDir(), 0o755); err != nil {
		return Session{}, fmt.Errorf("create sessions dir: %w", err)
	}
	if err := m.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// List returns sessions newest-first, optionally filtered by status.
func (m *SessionManager) List(status string) ([]Session, []string, error) {
	entries, err := os.ReadDir(m.paths.SessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read sessions dir: %w", err)
	}
	var out []Session
	var warnings []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var s Session
		if err := fsutil.ReadJSON(filepath.Join(m.paths.SessionsDir(), e.Name()), &s); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", e.Name(), err))
			debug.Logf("load session %s: %v", e.Name(), err)
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, warnings, nil
}

func (m *SessionManager) Get(id string) (Session, error) {
	var s Session
	if err := fsutil.ReadJSON(m.path(id), &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, fmt.Errorf("session %w: %s", ErrNotFound, id)
		}
		return Session{}, err
	}
	return s, nil
}

// Update applies mutate to the stored session and persists the result.
func (m *SessionManager) Update(id string, mutate func(*Session)) (Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return Session{}, err
	}
	mutate(&s)
	if err := m.save(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// End marks the session completed with an end timestamp.
func (m *SessionManager) End(id string) (Session, error) {
	return m.Update(id, func(s *Session) {
		now := time.Now().UTC()
		s.Status = SessionCompleted
		s.EndTime = &now
	})
}

// Kill sends SIGTERM to the stored pid best-effort (a dead or foreign pid is
// not an error) and marks the session killed.
func (m *SessionManager) Kill(id string) (Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return Session{}, err
	}
	if s.PID > 0 {
		if proc, perr := os.FindProcess(s.PID); perr == nil {
			if serr := proc.Signal(syscall.SIGTERM); serr != nil {
				debug.Logf("signal pid %d: %v", s.PID, serr)
			}
		}
	}
	return m.Update(id, func(s *Session) {
		now := time.Now().UTC()
		s.Status = SessionKilled
		s.EndTime = &now
	})
}

// Clean deletes non-active sessions older than daysOld days and returns the
// number removed. Active sessions are never pruned regardless of age.
func (m *SessionManager) Clean(daysOld int) (int, error) {
	if daysOld <= 0 {
		daysOld = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysOld)
	sessions, _, err := m.List("")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, s := range sessions {
		if s.Status == SessionActive {
			continue
		}
		if s.StartTime.After(cutoff) {
			continue
		}
		if err := os.Remove(m.path(s.ID)); err != nil {
			debug.Logf("clean session %s: %v", s.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (m *SessionManager) save(s Session) error {
	return fsutil.WriteJSON(m.path(s.ID), s)
}

func (m *SessionManager) path(id string) string {
	return filepath.Join(m.paths.SessionsDir(), id+".json")
}
