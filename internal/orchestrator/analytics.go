package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"time"

	"ccm/internal/config"
	"ccm/internal/fsutil"
)

// Tracked event kinds.
const (
	EventProfileApply = "profile_apply"
	EventLaunch       = "launch"
	EventWorkflowRun  = "workflow_run"
	EventTaskRun      = "task_run"
	EventHookRun      = "hook_run"
)

const maxRecentEvents = 200

// AnalyticsEvent is one tracked occurrence kept in the bounded recent log.
type AnalyticsEvent struct {
	Kind string    `json:"kind"`
	Name string    `json:"name,omitempty"`
	Time time.Time `json:"time"`
}

// Analytics 单例聚合文件；每次记录都整读整写
// Analytics is the singleton aggregate document, read-modify-written on
// every tracked event.
type Analytics struct {
	Counters  map[string]int   `json:"counters"`
	Events    []AnalyticsEvent `json:"events,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type AnalyticsStore struct {
	paths config.Paths
}

func NewAnalyticsStore(paths config.Paths) *AnalyticsStore {
	return &AnalyticsStore{paths: paths}
}

func (a *AnalyticsStore) Load() (Analytics, error) {
	var doc Analytics
	if err := fsutil.ReadJSON(a.paths.AnalyticsFile(), &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Analytics{Counters: map[string]int{}}, nil
		}
		return Analytics{}, err
	}
	if doc.Counters == nil {
		doc.Counters = map[string]int{}
	}
	return doc, nil
}

// Track bumps the counter for kind and appends to the bounded event log.
func (a *AnalyticsStore) Track(kind, name string) error {
	doc, err := a.Load()
	if err != nil {
		return err
	}
	doc.Counters[kind]++
	doc.Events = append(doc.Events, AnalyticsEvent{Kind: kind, Name: name, Time: time.Now().UTC()})
	if len(doc.Events) > maxRecentEvents {
		doc.Events = doc.Events[len(doc.Events)-maxRecentEvents:]
	}
	doc.UpdatedAt = time.Now().UTC()
	if err := os.MkdirAll(a.paths.OrchestratorDir(), 0o755); err != nil {
		return fmt.Errorf("create orchestrator dir: %w", err)
	}
	return fsutil.WriteJSON(a.paths.AnalyticsFile(), doc)
}

// Summary aggregates read-only statistics over the orchestrator stores.
type Summary struct {
	Profiles        int
	Workflows       int
	SessionsByState map[string]int
	TasksByState    map[string]int
	Counters        map[string]int
}

// Summarize walks the sibling stores without mutating anything.
func Summarize(paths config.Paths, profileCount int) (Summary, error) {
	s := Summary{
		Profiles:        profileCount,
		SessionsByState: map[string]int{},
		TasksByState:    map[string]int{},
	}

	sessions, _, err := NewSessionManager(paths).List("")
	if err != nil {
		return Summary{}, err
	}
	for _, sess := range sessions {
		s.SessionsByState[sess.Status]++
	}

	tasks, _, err := NewTaskQueue(paths).List("")
	if err != nil {
		return Summary{}, err
	}
	for _, t := range tasks {
		s.TasksByState[t.Status]++
	}

	workflows, _, err := NewWorkflowStore(paths).List()
	if err != nil {
		return Summary{}, err
	}
	s.Workflows = len(workflows)

	doc, err := NewAnalyticsStore(paths).Load()
	if err != nil {
		return Summary{}, err
	}
	s.Counters = doc.Counters
	return s, nil
}
