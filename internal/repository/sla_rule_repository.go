package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

// SLARuleRepository reads SLA timing policies. Rule administration lives in a
// separate surface; the engine only consumes the current rule set.
type SLARuleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SLARule, error)
	List(ctx context.Context) ([]domain.SLARule, error)
	ListActive(ctx context.Context) ([]domain.SLARule, error)
}

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSLARuleRepository builds the repository.
func NewSLARuleRepository(pool *pgxpool.Pool) SLARuleRepository {
	return &slaRuleRepository{pool: pool}
}

const slaRuleColumns = `id, name, priority, category, department_id,
               response_minutes, resolution_minutes,
               response_warning_minutes, resolution_warning_minutes,
               escalation_enabled, escalation_delay_minutes, is_active,
               created_at, updated_at`

func (r *slaRuleRepository) GetByID(ctx context.Context, id string) (*domain.SLARule, error) {
	query := `SELECT ` + slaRuleColumns + ` FROM sla_rules WHERE id=$1`
	var rule domain.SLARule
	if err := scanSLARule(r.pool.QueryRow(ctx, query, id), &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *slaRuleRepository) List(ctx context.Context) ([]domain.SLARule, error) {
	query := `SELECT ` + slaRuleColumns + ` FROM sla_rules ORDER BY created_at ASC`
	return r.fetchMany(ctx, query)
}

// ListActive returns candidate rules for resolution, oldest first so that
// waterfall ties resolve deterministically.
func (r *slaRuleRepository) ListActive(ctx context.Context) ([]domain.SLARule, error) {
	query := `SELECT ` + slaRuleColumns + ` FROM sla_rules WHERE is_active = TRUE ORDER BY created_at ASC`
	return r.fetchMany(ctx, query)
}

func (r *slaRuleRepository) fetchMany(ctx context.Context, query string) ([]domain.SLARule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLARule
	for rows.Next() {
		var rule domain.SLARule
		if err := scanSLARule(rows, &rule); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func scanSLARule(row rowScanner, rule *domain.SLARule) error {
	var (
		responseMin       int64
		resolutionMin     int64
		responseWarnMin   int64
		resolutionWarnMin int64
		escalationMin     *int64
	)
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Priority,
		&rule.Category,
		&rule.DepartmentID,
		&responseMin,
		&resolutionMin,
		&responseWarnMin,
		&resolutionWarnMin,
		&rule.EscalationEnabled,
		&escalationMin,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return err
	}
	rule.ResponseTime = time.Duration(responseMin) * time.Minute
	rule.ResolutionTime = time.Duration(resolutionMin) * time.Minute
	rule.ResponseWarningWindow = time.Duration(responseWarnMin) * time.Minute
	rule.ResolutionWarningWindow = time.Duration(resolutionWarnMin) * time.Minute
	if escalationMin != nil {
		delay := time.Duration(*escalationMin) * time.Minute
		rule.EscalationDelay = &delay
	}
	return nil
}
