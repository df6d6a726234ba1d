package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

// ErrVersionConflict signals that an SLA log was modified between read and
// write. The scan counts the ticket as failed and retries on the next cycle.
var ErrVersionConflict = errors.New("sla log version conflict")

// ScanItem is one unit of work for a compliance scan: an open ticket with its
// log and the rule the log was created under.
type ScanItem struct {
	Ticket domain.Ticket
	Log    domain.SLALog
	Rule   domain.SLARule
}

// ComplianceCounts aggregates stored log statuses for reporting.
type ComplianceCounts struct {
	Total              int64
	ResponseOnTime     int64
	ResponseWarning    int64
	ResponseBreached   int64
	ResolutionOnTime   int64
	ResolutionWarning  int64
	ResolutionBreached int64
	Escalated          int64
}

// PriorityCompliance is the per-priority breakdown row, one per active
// priority-only rule.
type PriorityCompliance struct {
	Priority domain.TicketPriority
	RuleID   string
	RuleName string
	Counts   ComplianceCounts
}

// SLALogRepository persists per-ticket SLA logs.
type SLALogRepository interface {
	Create(ctx context.Context, log *domain.SLALog) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.SLALog, error)
	// UpdateIfVersion writes the log only when the stored version still
	// matches log.Version, then bumps it. Returns ErrVersionConflict on a
	// lost race.
	UpdateIfVersion(ctx context.Context, log *domain.SLALog) error
	ListOpenForScan(ctx context.Context, openStatuses []domain.TicketStatus) ([]ScanItem, error)
	CountStatuses(ctx context.Context) (*ComplianceCounts, error)
	CountByPriorityRule(ctx context.Context) ([]PriorityCompliance, error)
}

type slaLogRepository struct {
	pool *pgxpool.Pool
}

// NewSLALogRepository builds the repository.
func NewSLALogRepository(pool *pgxpool.Pool) SLALogRepository {
	return &slaLogRepository{pool: pool}
}

func (r *slaLogRepository) Create(ctx context.Context, log *domain.SLALog) error {
	const query = `
        INSERT INTO sla_logs (ticket_id, rule_id, target_response_at, target_resolution_at,
            response_status, resolution_status, escalated)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		log.TicketID,
		log.RuleID,
		log.TargetResponseAt,
		log.TargetResolutionAt,
		log.ResponseStatus,
		log.ResolutionStatus,
		log.Escalated,
	).Scan(&log.ID, &log.Version, &log.CreatedAt, &log.UpdatedAt)
}

const slaLogColumns = `id, ticket_id, rule_id, target_response_at, target_resolution_at,
               actual_response_at, actual_resolution_at, response_status, resolution_status,
               escalated, escalated_at, version, created_at, updated_at`

func (r *slaLogRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SLALog, error) {
	query := `SELECT ` + slaLogColumns + ` FROM sla_logs WHERE ticket_id=$1`
	var log domain.SLALog
	if err := scanSLALog(r.pool.QueryRow(ctx, query, ticketID), &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *slaLogRepository) UpdateIfVersion(ctx context.Context, log *domain.SLALog) error {
	const query = `
        UPDATE sla_logs SET actual_response_at=$1, actual_resolution_at=$2,
            response_status=$3, resolution_status=$4, escalated=$5, escalated_at=$6,
            version=version+1, updated_at=NOW()
        WHERE id=$7 AND version=$8`
	cmd, err := r.pool.Exec(ctx, query,
		log.ActualResponseAt,
		log.ActualResolutionAt,
		log.ResponseStatus,
		log.ResolutionStatus,
		log.Escalated,
		log.EscalatedAt,
		log.ID,
		log.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	log.Version++
	return nil
}

func (r *slaLogRepository) ListOpenForScan(ctx context.Context, openStatuses []domain.TicketStatus) ([]ScanItem, error) {
	query := `
        SELECT ` + joinAlias(ticketColumns, "t") + `,
               ` + joinAlias(slaLogColumns, "l") + `,
               ` + joinAlias(slaRuleColumns, "r") + `
        FROM sla_logs l
        JOIN tickets t ON t.id = l.ticket_id
        JOIN sla_rules r ON r.id = l.rule_id
        WHERE t.status = ANY($1)
        ORDER BY l.created_at ASC`

	statuses := make([]string, len(openStatuses))
	for i, s := range openStatuses {
		statuses[i] = string(s)
	}

	rows, err := r.pool.Query(ctx, query, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScanItem
	for rows.Next() {
		var item ScanItem
		if err := scanScanItem(rows, &item); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *slaLogRepository) CountStatuses(ctx context.Context) (*ComplianceCounts, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE response_status='ON_TIME'),
               COUNT(*) FILTER (WHERE response_status='WARNING'),
               COUNT(*) FILTER (WHERE response_status='BREACHED'),
               COUNT(*) FILTER (WHERE resolution_status='ON_TIME'),
               COUNT(*) FILTER (WHERE resolution_status='WARNING'),
               COUNT(*) FILTER (WHERE resolution_status='BREACHED'),
               COUNT(*) FILTER (WHERE escalated)
        FROM sla_logs`
	var counts ComplianceCounts
	if err := r.pool.QueryRow(ctx, query).Scan(
		&counts.Total,
		&counts.ResponseOnTime,
		&counts.ResponseWarning,
		&counts.ResponseBreached,
		&counts.ResolutionOnTime,
		&counts.ResolutionWarning,
		&counts.ResolutionBreached,
		&counts.Escalated,
	); err != nil {
		return nil, err
	}
	return &counts, nil
}

// CountByPriorityRule aggregates logs per active priority-only rule, joining
// only tickets whose priority matches the rule's.
func (r *slaLogRepository) CountByPriorityRule(ctx context.Context) ([]PriorityCompliance, error) {
	const query = `
        SELECT rl.priority, rl.id, rl.name,
               COUNT(l.id),
               COUNT(*) FILTER (WHERE l.response_status='ON_TIME'),
               COUNT(*) FILTER (WHERE l.response_status='WARNING'),
               COUNT(*) FILTER (WHERE l.response_status='BREACHED'),
               COUNT(*) FILTER (WHERE l.resolution_status='ON_TIME'),
               COUNT(*) FILTER (WHERE l.resolution_status='WARNING'),
               COUNT(*) FILTER (WHERE l.resolution_status='BREACHED'),
               COUNT(*) FILTER (WHERE l.escalated)
        FROM sla_rules rl
        LEFT JOIN (sla_logs l JOIN tickets t ON t.id = l.ticket_id)
               ON l.rule_id = rl.id AND t.priority = rl.priority
        WHERE rl.is_active = TRUE
          AND rl.priority IS NOT NULL
          AND rl.category IS NULL
          AND rl.department_id IS NULL
        GROUP BY rl.priority, rl.id, rl.name
        ORDER BY rl.priority ASC, rl.created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriorityCompliance
	for rows.Next() {
		var row PriorityCompliance
		if err := rows.Scan(
			&row.Priority,
			&row.RuleID,
			&row.RuleName,
			&row.Counts.Total,
			&row.Counts.ResponseOnTime,
			&row.Counts.ResponseWarning,
			&row.Counts.ResponseBreached,
			&row.Counts.ResolutionOnTime,
			&row.Counts.ResolutionWarning,
			&row.Counts.ResolutionBreached,
			&row.Counts.Escalated,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanSLALog(row rowScanner, log *domain.SLALog) error {
	return row.Scan(
		&log.ID,
		&log.TicketID,
		&log.RuleID,
		&log.TargetResponseAt,
		&log.TargetResolutionAt,
		&log.ActualResponseAt,
		&log.ActualResolutionAt,
		&log.ResponseStatus,
		&log.ResolutionStatus,
		&log.Escalated,
		&log.EscalatedAt,
		&log.Version,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
}

func scanScanItem(rows pgx.Rows, item *ScanItem) error {
	// Column order mirrors ticketColumns, slaLogColumns, slaRuleColumns.
	var (
		responseMin       int64
		resolutionMin     int64
		responseWarnMin   int64
		resolutionWarnMin int64
		escalationMin     *int64
	)
	if err := rows.Scan(
		&item.Ticket.ID,
		&item.Ticket.ExternalKey,
		&item.Ticket.RequesterID,
		&item.Ticket.DepartmentID,
		&item.Ticket.Category,
		&item.Ticket.AssignedTo,
		&item.Ticket.Title,
		&item.Ticket.Description,
		&item.Ticket.Status,
		&item.Ticket.Priority,
		&item.Ticket.CreatedAt,
		&item.Ticket.UpdatedAt,
		&item.Ticket.FirstResponseAt,
		&item.Ticket.ResolvedAt,
		&item.Ticket.ClosedAt,
		&item.Log.ID,
		&item.Log.TicketID,
		&item.Log.RuleID,
		&item.Log.TargetResponseAt,
		&item.Log.TargetResolutionAt,
		&item.Log.ActualResponseAt,
		&item.Log.ActualResolutionAt,
		&item.Log.ResponseStatus,
		&item.Log.ResolutionStatus,
		&item.Log.Escalated,
		&item.Log.EscalatedAt,
		&item.Log.Version,
		&item.Log.CreatedAt,
		&item.Log.UpdatedAt,
		&item.Rule.ID,
		&item.Rule.Name,
		&item.Rule.Priority,
		&item.Rule.Category,
		&item.Rule.DepartmentID,
		&responseMin,
		&resolutionMin,
		&responseWarnMin,
		&resolutionWarnMin,
		&item.Rule.EscalationEnabled,
		&escalationMin,
		&item.Rule.IsActive,
		&item.Rule.CreatedAt,
		&item.Rule.UpdatedAt,
	); err != nil {
		return err
	}
	item.Rule.ResponseTime = time.Duration(responseMin) * time.Minute
	item.Rule.ResolutionTime = time.Duration(resolutionMin) * time.Minute
	item.Rule.ResponseWarningWindow = time.Duration(responseWarnMin) * time.Minute
	item.Rule.ResolutionWarningWindow = time.Duration(resolutionWarnMin) * time.Minute
	if escalationMin != nil {
		delay := time.Duration(*escalationMin) * time.Minute
		item.Rule.EscalationDelay = &delay
	}
	return nil
}

// joinAlias prefixes every column in a comma list with a table alias.
func joinAlias(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
