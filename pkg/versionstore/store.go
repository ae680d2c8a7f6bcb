// Package versionstore creates, hashes and forks immutable scenario
// versions. The canonical payload bytes are the stored source of truth;
// the typed payload view handed to the engines is parsed from them, so
// unknown fields survive fork and export round trips.
package versionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trialforge/supplyline/pkg/canonical"
	"github.com/trialforge/supplyline/pkg/domain/entities"
	"github.com/trialforge/supplyline/pkg/domain/repositories"
	"github.com/trialforge/supplyline/pkg/infrastructure/events"
)

// VersionOptions carries the optional metadata of a new version
type VersionOptions struct {
	Label     string
	CreatedBy string
}

// Store is the version store. All writes go through the repository's
// AppendVersion, which owns the monotonic version-number invariant.
type Store struct {
	repo   repositories.ScenarioRepository
	events events.EventStore
	log    *zap.Logger
}

// NewStore creates a version store over the given repository. A nil event
// store disables event publication.
func NewStore(repo repositories.ScenarioRepository, eventStore events.EventStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{repo: repo, events: eventStore, log: log}
}

// CreateScenario registers a new scenario identity
func (s *Store) CreateScenario(ctx context.Context, trialCode, name, description string) (*entities.Scenario, error) {
	sc, err := entities.NewScenario(trialCode, name, description, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateScenario(ctx, sc); err != nil {
		return nil, fmt.Errorf("create scenario: %w", err)
	}
	s.publish(events.ScenarioCreatedEvent, sc.ID, events.ScenarioCreated{
		ScenarioID: sc.ID,
		TrialCode:  sc.TrialCode,
		Name:       sc.Name,
	})
	s.log.Info("scenario created",
		zap.String("scenario_id", sc.ID.String()),
		zap.String("trial_code", sc.TrialCode))
	return sc, nil
}

// GetScenario loads a scenario identity
func (s *Store) GetScenario(ctx context.Context, id uuid.UUID) (*entities.Scenario, error) {
	return s.repo.GetScenario(ctx, id)
}

// ListScenarios returns all scenario identities
func (s *Store) ListScenarios(ctx context.Context) ([]*entities.Scenario, error) {
	return s.repo.ListScenarios(ctx)
}

// CreateVersion validates the payload's referential invariants, computes
// its content hash and appends a new immutable version. Validation
// failures leave the store unchanged.
func (s *Store) CreateVersion(ctx context.Context, scenarioID uuid.UUID, payload *entities.CanonicalPayload, opts VersionOptions) (*entities.ScenarioVersion, error) {
	doc, err := canonical.Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return s.createFromDoc(ctx, scenarioID, doc, opts, 0)
}

// CreateVersionRaw is CreateVersion over raw JSON payload bytes, keeping
// fields the typed model does not know about.
func (s *Store) CreateVersionRaw(ctx context.Context, scenarioID uuid.UUID, raw []byte, opts VersionOptions) (*entities.ScenarioVersion, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Issues: []ValidationIssue{{
			Field:  "(payload)",
			Reason: fmt.Sprintf("payload must be a JSON object: %v", err),
		}}}
	}
	return s.createFromDoc(ctx, scenarioID, doc, opts, 0)
}

// Fork loads a base version, applies an RFC 7396 merge patch to its
// canonical document and creates the merged result as a new version
// through the same validation and hashing path.
func (s *Store) Fork(ctx context.Context, scenarioID uuid.UUID, baseVersion int, patch json.RawMessage, opts VersionOptions) (*entities.ScenarioVersion, error) {
	base, err := s.repo.GetVersion(ctx, scenarioID, baseVersion)
	if err != nil {
		return nil, fmt.Errorf("load base version %d: %w", baseVersion, err)
	}

	var patchDoc any
	if err := json.Unmarshal(patch, &patchDoc); err != nil {
		return nil, &MergePatchError{Reason: fmt.Sprintf("patch is not valid JSON: %v", err)}
	}
	if _, ok := patchDoc.(map[string]any); !ok {
		return nil, &MergePatchError{Reason: "patch document must be a JSON object"}
	}

	var baseDoc map[string]any
	if err := json.Unmarshal(base.Canonical, &baseDoc); err != nil {
		return nil, fmt.Errorf("parse canonical payload of version %d: %w", baseVersion, err)
	}

	merged := canonical.MergePatch(baseDoc, patchDoc)
	mergedDoc, ok := merged.(map[string]any)
	if !ok {
		return nil, &MergePatchError{Reason: "merged document is no longer a JSON object"}
	}

	v, err := s.createFromDoc(ctx, scenarioID, mergedDoc, opts, base.Version)
	if err != nil {
		return nil, err
	}
	s.log.Info("version forked",
		zap.String("scenario_id", scenarioID.String()),
		zap.Int("base_version", baseVersion),
		zap.Int("version", v.Version))
	return v, nil
}

// Latest returns the highest-numbered version of a scenario
func (s *Store) Latest(ctx context.Context, scenarioID uuid.UUID) (*entities.ScenarioVersion, error) {
	return s.repo.LatestVersion(ctx, scenarioID)
}

// Get returns one specific version
func (s *Store) Get(ctx context.Context, scenarioID uuid.UUID, version int) (*entities.ScenarioVersion, error) {
	return s.repo.GetVersion(ctx, scenarioID, version)
}

// List returns all versions of a scenario in ascending order
func (s *Store) List(ctx context.Context, scenarioID uuid.UUID) ([]*entities.ScenarioVersion, error) {
	return s.repo.ListVersions(ctx, scenarioID)
}

// Export returns the exact canonical payload bytes of a version. Creating
// a version from these bytes on an empty scenario reproduces the same
// payload hash.
func (s *Store) Export(ctx context.Context, scenarioID uuid.UUID, version int) ([]byte, error) {
	v, err := s.repo.GetVersion(ctx, scenarioID, version)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v.Canonical))
	copy(out, v.Canonical)
	return out, nil
}

// createFromDoc canonicalizes, validates, hashes and appends one version.
// baseVersion is nonzero when the document came out of a fork.
func (s *Store) createFromDoc(ctx context.Context, scenarioID uuid.UUID, doc map[string]any, opts VersionOptions, baseVersion int) (*entities.ScenarioVersion, error) {
	if _, err := s.repo.GetScenario(ctx, scenarioID); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenarioID, err)
	}

	canonBytes, err := canonical.MarshalDoc(doc)
	if err != nil {
		// Unreachable for a document that came out of json.Unmarshal.
		return nil, fmt.Errorf("internal: canonicalization failed: %w", err)
	}

	var typed entities.CanonicalPayload
	if err := json.Unmarshal(canonBytes, &typed); err != nil {
		return nil, &ValidationError{Issues: []ValidationIssue{{
			Field:  "(payload)",
			Reason: fmt.Sprintf("payload does not match the canonical schema: %v", err),
		}}}
	}
	if err := ValidatePayload(&typed); err != nil {
		return nil, err
	}

	v := &entities.ScenarioVersion{
		ID:          uuid.New(),
		ScenarioID:  scenarioID,
		Label:       opts.Label,
		CreatedBy:   opts.CreatedBy,
		CreatedAt:   time.Now().UTC(),
		PayloadHash: canonical.Hash(canonBytes),
		Canonical:   canonBytes,
		Payload:     &typed,
	}
	if err := s.repo.AppendVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}

	s.publish(events.VersionCreatedEvent, scenarioID, events.VersionCreated{
		ScenarioID:  scenarioID,
		VersionID:   v.ID,
		Version:     v.Version,
		Label:       v.Label,
		PayloadHash: v.PayloadHash,
		Forked:      baseVersion > 0,
		BaseVersion: baseVersion,
	})
	s.log.Info("version created",
		zap.String("scenario_id", scenarioID.String()),
		zap.Int("version", v.Version),
		zap.String("payload_hash", v.PayloadHash))
	return v, nil
}

func (s *Store) publish(eventType string, scenarioID uuid.UUID, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.AppendEvent(scenarioID.String(), events.NewEvent(eventType, scenarioID.String(), data)); err != nil {
		s.log.Warn("event publish failed",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
