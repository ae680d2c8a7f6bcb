package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trialforge/supplyline/pkg/domain/entities"
	"github.com/trialforge/supplyline/pkg/domain/repositories"
)

// ScenarioRepository is the SQLite-backed scenario store. AppendVersion
// assigns version numbers inside a single transaction, so they stay
// gapless even with concurrent writers.
type ScenarioRepository struct {
	db *sql.DB
}

// NewScenarioRepository wraps an opened database
func NewScenarioRepository(db *sql.DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

// Verify interface compliance
var _ repositories.ScenarioRepository = (*ScenarioRepository)(nil)

func (r *ScenarioRepository) CreateScenario(ctx context.Context, s *entities.Scenario) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scenarios(id, trial_code, name, description, created_at) VALUES (?,?,?,?,?)`,
		s.ID.String(), s.TrialCode, s.Name, s.Description, s.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *ScenarioRepository) GetScenario(ctx context.Context, id uuid.UUID) (*entities.Scenario, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, trial_code, name, description, created_at FROM scenarios WHERE id=?`, id.String())
	return scanScenario(row)
}

func (r *ScenarioRepository) ListScenarios(ctx context.Context) ([]*entities.Scenario, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trial_code, name, description, created_at FROM scenarios ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entities.Scenario
	for rows.Next() {
		var (
			s                entities.Scenario
			idStr, createdAt string
		)
		if err := rows.Scan(&idStr, &s.TrialCode, &s.Name, &s.Description, &createdAt); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("corrupt scenario id %q: %w", idStr, err)
		}
		if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *ScenarioRepository) AppendVersion(ctx context.Context, v *entities.ScenarioVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenarios WHERE id=?`, v.ScenarioID.String()).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return repositories.ErrNotFound
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM scenario_versions WHERE scenario_id=?`,
		v.ScenarioID.String()).Scan(&v.Version)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scenario_versions(id, scenario_id, version, label, created_by, created_at, payload_hash, canonical)
		 VALUES (?,?,?,?,?,?,?,?)`,
		v.ID.String(), v.ScenarioID.String(), v.Version, v.Label, v.CreatedBy,
		v.CreatedAt.UTC().Format(time.RFC3339Nano), v.PayloadHash, v.Canonical)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ScenarioRepository) GetVersion(ctx context.Context, scenarioID uuid.UUID, version int) (*entities.ScenarioVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, version, label, created_by, created_at, payload_hash, canonical
		 FROM scenario_versions WHERE scenario_id=? AND version=?`,
		scenarioID.String(), version)
	return scanVersion(row)
}

func (r *ScenarioRepository) LatestVersion(ctx context.Context, scenarioID uuid.UUID) (*entities.ScenarioVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, version, label, created_by, created_at, payload_hash, canonical
		 FROM scenario_versions WHERE scenario_id=? ORDER BY version DESC LIMIT 1`,
		scenarioID.String())
	return scanVersion(row)
}

func (r *ScenarioRepository) ListVersions(ctx context.Context, scenarioID uuid.UUID) ([]*entities.ScenarioVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scenario_id, version, label, created_by, created_at, payload_hash, canonical
		 FROM scenario_versions WHERE scenario_id=? ORDER BY version`,
		scenarioID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entities.ScenarioVersion
	for rows.Next() {
		v, err := scanVersionRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanScenario(row *sql.Row) (*entities.Scenario, error) {
	var (
		s                entities.Scenario
		idStr, createdAt string
	)
	err := row.Scan(&idStr, &s.TrialCode, &s.Name, &s.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("corrupt scenario id %q: %w", idStr, err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	return &s, nil
}

func scanVersion(row *sql.Row) (*entities.ScenarioVersion, error) {
	v, err := scanVersionRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	return v, err
}

func scanVersionRow(scan func(...any) error) (*entities.ScenarioVersion, error) {
	var (
		v                               entities.ScenarioVersion
		idStr, scenarioIDStr, createdAt string
	)
	err := scan(&idStr, &scenarioIDStr, &v.Version, &v.Label, &v.CreatedBy, &createdAt, &v.PayloadHash, &v.Canonical)
	if err != nil {
		return nil, err
	}
	if v.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("corrupt version id %q: %w", idStr, err)
	}
	if v.ScenarioID, err = uuid.Parse(scenarioIDStr); err != nil {
		return nil, fmt.Errorf("corrupt scenario id %q: %w", scenarioIDStr, err)
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}

	var payload entities.CanonicalPayload
	if err := json.Unmarshal(v.Canonical, &payload); err != nil {
		return nil, fmt.Errorf("corrupt canonical payload of version %d: %w", v.Version, err)
	}
	v.Payload = &payload
	return &v, nil
}
