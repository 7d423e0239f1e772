package workflow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dconley/agentforge/internal/apperr"
	"github.com/dconley/agentforge/internal/store"
)

var timeNow = time.Now

// Plan is the immutable implementation plan embedded in task metadata.
type Plan struct {
	Overview          string   `json:"overview"`
	Steps             []string `json:"steps"`
	TechnicalApproach string   `json:"technicalApproach"`
	FilesToCreate     []string `json:"filesToCreate,omitempty"`
	FilesToModify     []string `json:"filesToModify,omitempty"`
	Risks             []string `json:"risks,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	CreatedBy         string   `json:"createdBy"`
}

// phaseState is the JSON payload of a WorkflowState row's state column.
type phaseState struct {
	CurrentPhase   Phase   `json:"currentPhase"`
	PreviousPhases []Phase `json:"previousPhases"`
}

// TaskInfo is what getTaskInfo returns: the task plus the capability row
// for the caller's phase. Phase gates capabilities, not field visibility.
type TaskInfo struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	Metadata    map[string]any `json:"metadata"` // nil when absent or corrupt
	Access      Access         `json:"access"`
}

// Service runs phase transitions over the store.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// GetTaskInfo fetches a task and the capability row for phase. Corrupt
// metadata is reported as null rather than failing the call.
func (s *Service) GetTaskInfo(taskID int64, phase Phase) (*TaskInfo, error) {
	task, err := s.getTask(taskID)
	if err != nil {
		return nil, err
	}
	return &TaskInfo{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Metadata:    decodeMetadata(task.Metadata),
		Access:      AccessFor(phase),
	}, nil
}

// CreatePlan embeds a plan into the task's metadata and opens its workflow
// history. A task's plan is write-once.
func (s *Service) CreatePlan(taskID int64, plan Plan) error {
	task, err := s.getTask(taskID)
	if err != nil {
		return err
	}

	meta := decodeMetadata(task.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	if _, exists := meta["plan"]; exists {
		return apperr.Ef(apperr.PlanExists, "task %d already has a plan", taskID)
	}

	if plan.CreatedAt == "" {
		plan.CreatedAt = timeNow().UTC().Format(time.RFC3339)
	}
	meta["plan"] = plan

	raw, err := json.Marshal(meta)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "encode task metadata", err)
	}
	if err := s.store.UpdateTaskMetadata(taskID, string(raw)); err != nil {
		return apperr.Wrap(apperr.Internal, "persist plan", err)
	}

	state := mustEncodeState(phaseState{CurrentPhase: Planning, PreviousPhases: []Phase{}})
	if _, err := s.store.AppendWorkflowState(taskID, string(Planning), "plan_created", state, "{}"); err != nil {
		return apperr.Wrap(apperr.Internal, "record plan creation", err)
	}

	s.logger.Info("plan created", "task_id", taskID, "steps", len(plan.Steps))
	return nil
}

// UpdateTaskPhase moves a task along the phase graph. fromPhase must match
// the task's actual current phase; the transition must be a graph edge.
func (s *Service) UpdateTaskPhase(taskID int64, fromPhase, toPhase Phase, metadata map[string]any) error {
	task, err := s.getTask(taskID)
	if err != nil {
		return err
	}

	latest, err := s.store.LatestWorkflowState(taskID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Ef(apperr.WorkflowNotFound, "task %d has no workflow history", taskID)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "load workflow state", err)
	}

	if !CanTransition(fromPhase, toPhase) {
		return apperr.Ef(apperr.InvalidPhaseTransition, "cannot transition %s → %s", fromPhase, toPhase)
	}
	if Phase(latest.Phase) != fromPhase {
		return apperr.Ef(apperr.PhaseMismatch,
			"task %d is in phase %s, not %s", taskID, latest.Phase, fromPhase)
	}

	prior := decodeState(latest.State)
	next := phaseState{
		CurrentPhase:   toPhase,
		PreviousPhases: append(prior.PreviousPhases, fromPhase),
	}

	metaJSON := "{}"
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			metaJSON = string(raw)
		}
	}
	step := "transition_from_" + string(fromPhase)
	if _, err := s.store.AppendWorkflowState(taskID, string(toPhase), step, mustEncodeState(next), metaJSON); err != nil {
		return apperr.Wrap(apperr.Internal, "record phase transition", err)
	}

	if toPhase == Development && task.Status == "pending" {
		if err := s.store.UpdateTaskStatus(taskID, "in_progress"); err != nil {
			return apperr.Wrap(apperr.Internal, "update task status", err)
		}
	}

	s.logger.Info("task phase updated", "task_id", taskID, "from", fromPhase, "to", toPhase)
	return nil
}

// MarkTaskComplete finishes a task. Only a caller presenting the review
// phase may complete, and only when the task really is in review.
func (s *Service) MarkTaskComplete(taskID int64, phase Phase, notes string) error {
	task, err := s.getTask(taskID)
	if err != nil {
		return err
	}

	if phase != Review {
		return apperr.Ef(apperr.InvalidCompletionPhase,
			"completion requires the review phase, got %s", phase)
	}

	latest, err := s.store.LatestWorkflowState(taskID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Ef(apperr.WorkflowNotFound, "task %d has no workflow history", taskID)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "load workflow state", err)
	}
	if Phase(latest.Phase) != Review {
		return apperr.Ef(apperr.NotInReviewPhase,
			"task %d is in phase %s, not review", taskID, latest.Phase)
	}

	if err := s.store.UpdateTaskStatus(taskID, "completed"); err != nil {
		return apperr.Wrap(apperr.Internal, "complete task", err)
	}

	prior := decodeState(latest.State)
	final := phaseState{
		CurrentPhase:   Review,
		PreviousPhases: prior.PreviousPhases,
	}
	metaJSON := "{}"
	if notes != "" {
		if raw, err := json.Marshal(map[string]any{"notes": notes}); err == nil {
			metaJSON = string(raw)
		}
	}
	if _, err := s.store.AppendWorkflowState(taskID, string(Review), "completed", mustEncodeState(final), metaJSON); err != nil {
		return apperr.Wrap(apperr.Internal, "record completion", err)
	}

	s.logger.Info("task completed", "task_id", task.ID)
	return nil
}

// CurrentPhase returns the task's phase from its latest history row.
func (s *Service) CurrentPhase(taskID int64) (Phase, error) {
	latest, err := s.store.LatestWorkflowState(taskID)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.Ef(apperr.WorkflowNotFound, "task %d has no workflow history", taskID)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "load workflow state", err)
	}
	return Phase(latest.Phase), nil
}

// History returns the full append-only phase history, oldest first.
func (s *Service) History(taskID int64) ([]store.WorkflowState, error) {
	if _, err := s.getTask(taskID); err != nil {
		return nil, err
	}
	rows, err := s.store.WorkflowHistory(taskID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load workflow history", err)
	}
	return rows, nil
}

func (s *Service) getTask(taskID int64) (*store.Task, error) {
	task, err := s.store.GetTask(taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Ef(apperr.TaskNotFound, "task %d not found", taskID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load task", err)
	}
	return task, nil
}

// decodeMetadata parses a task's metadata column. Corrupt or empty
// metadata yields nil, so callers see "no metadata" uniformly whether
// the column holds "", "{}", or garbage.
func decodeMetadata(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func decodeState(raw string) phaseState {
	var st phaseState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return phaseState{PreviousPhases: []Phase{}}
	}
	if st.PreviousPhases == nil {
		st.PreviousPhases = []Phase{}
	}
	return st
}

func mustEncodeState(st phaseState) string {
	raw, err := json.Marshal(st)
	if err != nil {
		return `{"currentPhase":"","previousPhases":[]}`
	}
	return string(raw)
}
