package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"idp-hq/assess/pkg/inclusivity"
)

// ErrInvalidSubmission is returned for submissions with missing or
// malformed fields.
var ErrInvalidSubmission = errors.New("invalid submission")

// Dispatcher hands a run ID to whatever executes runs.
type Dispatcher interface {
	Dispatch(ctx context.Context, runID string) error
}

// Submission is a request to evaluate an artifact.
type Submission struct {
	ArtifactID string `json:"artifact_id"`
	ScenarioID string `json:"scenario_id"`
	RulePackID string `json:"rulepack_id"`
	WebhookURL string `json:"webhook_url,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
}

// Validate checks that every reference is present and the webhook URL, if
// any, is an absolute http(s) URL.
func (s Submission) Validate() error {
	var missing []string
	if strings.TrimSpace(s.ArtifactID) == "" {
		missing = append(missing, "artifact_id")
	}
	if strings.TrimSpace(s.ScenarioID) == "" {
		missing = append(missing, "scenario_id")
	}
	if strings.TrimSpace(s.RulePackID) == "" {
		missing = append(missing, "rulepack_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSubmission, strings.Join(missing, ", "))
	}
	if s.WebhookURL != "" {
		u, err := url.Parse(s.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: webhook_url must be an absolute http(s) URL", ErrInvalidSubmission)
		}
	}
	return nil
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// View is the externally visible state of a run.
type View struct {
	ID               string             `json:"id"`
	Status           Status             `json:"status"`
	Metrics          map[string]any     `json:"metrics"`
	Results          *Results           `json:"results"`
	InclusivityIndex *inclusivity.Index `json:"inclusivity_index"`
	// Delta is the score change against the previous scored run of the
	// same scenario.
	Delta *float64 `json:"delta,omitempty"`
}

// Service implements submission, fetch and deletion of runs.
type Service struct {
	store      Store
	refs       Resolver
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a service.
func NewService(store Store, refs Resolver, dispatcher Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		refs:       refs,
		dispatcher: dispatcher,
		logger:     logger.With("component", "evaluation.service"),
		now:        time.Now,
	}
}

// Submit validates the references, creates a queued run and dispatches it.
func (s *Service) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, sub); err != nil {
		return nil, err
	}

	run := &Run{
		ID:         uuid.New().String(),
		ScenarioID: sub.ScenarioID,
		Status:     StatusQueued,
		Inputs: Inputs{
			ArtifactID: sub.ArtifactID,
			RulePackID: sub.RulePackID,
			WebhookURL: sub.WebhookURL,
			Debug:      sub.Debug,
		},
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, run); err != nil {
		return nil, err
	}

	if err := s.dispatch(ctx, run.ID); err != nil {
		return nil, err
	}

	s.logger.Info("evaluation submitted",
		"run_id", run.ID,
		"scenario_id", run.ScenarioID,
		"rulepack_id", run.Inputs.RulePackID,
		"debug", run.Inputs.Debug)

	return &SubmitResult{ID: run.ID, Status: run.Status}, nil
}

// Resume dispatches every run a previous process left unfinished: pending
// and queued runs that never reached a worker and running runs that were
// interrupted. Runs are dispatched oldest first. It returns how many were
// dispatched; a run that cannot be dispatched is marked error.
func (s *Service) Resume(ctx context.Context) (int, error) {
	var pending []*Run
	for _, status := range []Status{StatusPending, StatusQueued, StatusRunning} {
		runs, err := s.store.List(ctx, Filter{Status: status})
		if err != nil {
			return 0, fmt.Errorf("list %s runs: %w", status, err)
		}
		pending = append(pending, runs...)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	resumed := 0
	for _, run := range pending {
		if err := s.dispatch(ctx, run.ID); err != nil {
			continue
		}
		s.logger.Info("evaluation resumed", "run_id", run.ID, "status", run.Status)
		resumed++
	}
	return resumed, nil
}

// dispatch hands runID to the dispatcher, marking the run error when that
// fails so it never stays queued without a worker.
func (s *Service) dispatch(ctx context.Context, runID string) error {
	err := s.dispatcher.Dispatch(ctx, runID)
	if err == nil {
		return nil
	}
	s.logger.Error("failed to dispatch run", "run_id", runID, "error", err)
	failErr := s.store.Fail(ctx, runID, Failure{
		Message:     fmt.Sprintf("dispatch failed: %v", err),
		CompletedAt: s.now().UTC(),
	})
	if failErr != nil {
		s.logger.Error("failed to record dispatch failure", "run_id", runID, "error", failErr)
	}
	return fmt.Errorf("dispatch run %s: %w", runID, err)
}

func (s *Service) checkReferences(ctx context.Context, sub Submission) error {
	var invalid []string
	check := func(name string, err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) {
			invalid = append(invalid, name)
			return nil
		}
		return err
	}

	if _, err := s.refs.Scenario(ctx, sub.ScenarioID); check("scenario_id", err) != nil {
		return err
	}
	if _, err := s.refs.RulePack(ctx, sub.RulePackID); check("rulepack_id", err) != nil {
		return err
	}
	if _, err := s.refs.Artifact(ctx, sub.ArtifactID); check("artifact_id", err) != nil {
		return err
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidReferences, strings.Join(invalid, ", "))
	}
	return nil
}

// Get returns the view of a run, including the score delta against the
// previous scored run of the same scenario.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &View{
		ID:               run.ID,
		Status:           run.Status,
		Metrics:          run.Metrics(),
		Results:          run.Results,
		InclusivityIndex: run.Index,
	}

	if run.Index != nil {
		prev, err := s.previousScored(ctx, run)
		if err != nil {
			s.logger.Warn("failed to compute score delta", "run_id", run.ID, "error", err)
		} else if prev != nil {
			view.Delta = inclusivity.Delta(prev.Index, run.Index)
		}
	}
	return view, nil
}

func (s *Service) previousScored(ctx context.Context, run *Run) (*Run, error) {
	runs, err := s.store.List(ctx, Filter{
		ScenarioID:    run.ScenarioID,
		CreatedBefore: run.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.ID != run.ID && r.Index != nil {
			return r, nil
		}
	}
	return nil, nil
}

// Delete removes a terminal run. Runs still queued or running are refused
// with ErrRunNotTerminal.
func (s *Service) Delete(ctx context.Context, id string) error {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !run.Status.IsTerminal() {
		return fmt.Errorf("%w: run %s is %s", ErrRunNotTerminal, id, run.Status)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("evaluation deleted", "run_id", id)
	return nil
}
