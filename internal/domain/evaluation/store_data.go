package evaluation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/audit"
)

const (
	componentCompetency = "competency"
	componentCulture    = "culture"
)

// PGStore is the PostgreSQL implementation of Store. History rows are read
// through the audit service and written through audit.Append so transition
// commits stay inside one transaction.
type PGStore struct {
	DB     *pgxpool.Pool
	Ledger *audit.Service
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db, Ledger: audit.New(db)}
}

const bonusColumns = `
    id, employee_id, period, status, self_score, feedback_score, formula,
    goal_score, total_score, submitted_date, checked_date, approved_date,
    checker_feedback, approver_feedback, rejection_reason, created_at, updated_at`

func (s *PGStore) GetBonus(ctx context.Context, recordID string) (BonusRecord, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+bonusColumns+`
    FROM kpi_bonus_records
    WHERE id = $1
  `, recordID)
	record, err := scanBonus(row)
	if err != nil {
		return BonusRecord{}, err
	}
	items, err := s.bonusItems(ctx, recordID)
	if err != nil {
		return BonusRecord{}, err
	}
	record.Items = items
	return record, nil
}

func (s *PGStore) ListBonus(ctx context.Context, employeeID string) ([]BonusRecord, error) {
	query := `SELECT ` + bonusColumns + ` FROM kpi_bonus_records`
	args := []any{}
	if employeeID != "" {
		query += " WHERE employee_id = $1"
		args = append(args, employeeID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BonusRecord
	for rows.Next() {
		record, err := scanBonus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.bonusItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *PGStore) CreateBonus(ctx context.Context, record BonusRecord) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO kpi_bonus_records (id, employee_id, period, status, self_score, feedback_score, formula, goal_score, total_score, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
  `, record.ID, record.EmployeeID, record.Period, record.Status, record.SelfScore, record.FeedbackScore, record.Formula, record.GoalScore, record.TotalScore, record.CreatedAt); err != nil {
		return err
	}
	if err := insertBonusItems(ctx, tx, record.ID, record.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) UpdateBonusDraft(ctx context.Context, record BonusRecord) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE kpi_bonus_records
    SET period = $2, self_score = $3, feedback_score = $4, formula = $5, goal_score = $6, updated_at = now()
    WHERE id = $1 AND status IN ($7, $8)
  `, record.ID, record.Period, record.SelfScore, record.FeedbackScore, record.Formula, record.GoalScore, StatusDraft, StatusNotStarted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.editRejection(ctx, "kpi_bonus_records", record.ID)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM kpi_bonus_items WHERE record_id = $1", record.ID); err != nil {
		return err
	}
	if err := insertBonusItems(ctx, tx, record.ID, record.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const meritColumns = `
    id, employee_id, period, status, kpi_weight, kpi_score, competency_weight,
    culture_weight, total_score, submitted_date, checked_date, approved_date,
    checker_feedback, approver_feedback, rejection_reason, created_at, updated_at`

func (s *PGStore) GetMerit(ctx context.Context, recordID string) (MeritRecord, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+meritColumns+`
    FROM kpi_merit_records
    WHERE id = $1
  `, recordID)
	record, err := scanMerit(row)
	if err != nil {
		return MeritRecord{}, err
	}
	if err := s.attachMeritItems(ctx, &record); err != nil {
		return MeritRecord{}, err
	}
	return record, nil
}

func (s *PGStore) ListMerit(ctx context.Context, employeeID string) ([]MeritRecord, error) {
	query := `SELECT ` + meritColumns + ` FROM kpi_merit_records`
	args := []any{}
	if employeeID != "" {
		query += " WHERE employee_id = $1"
		args = append(args, employeeID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeritRecord
	for rows.Next() {
		record, err := scanMerit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.attachMeritItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PGStore) CreateMerit(ctx context.Context, record MeritRecord) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO kpi_merit_records (id, employee_id, period, status, kpi_weight, kpi_score, competency_weight, culture_weight, total_score, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
  `, record.ID, record.EmployeeID, record.Period, record.Status, record.KPIWeight, record.KPIScore, record.CompetencyWeight, record.CultureWeight, record.TotalScore, record.CreatedAt); err != nil {
		return err
	}
	if err := insertMeritItems(ctx, tx, record.ID, componentCompetency, record.CompetencyItems); err != nil {
		return err
	}
	if err := insertMeritItems(ctx, tx, record.ID, componentCulture, record.CultureItems); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) UpdateMeritDraft(ctx context.Context, record MeritRecord) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE kpi_merit_records
    SET period = $2, kpi_weight = $3, kpi_score = $4, competency_weight = $5, culture_weight = $6, total_score = $7, updated_at = now()
    WHERE id = $1 AND status IN ($8, $9)
  `, record.ID, record.Period, record.KPIWeight, record.KPIScore, record.CompetencyWeight, record.CultureWeight, record.TotalScore, StatusDraft, StatusNotStarted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.editRejection(ctx, "kpi_merit_records", record.ID)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM kpi_merit_items WHERE record_id = $1", record.ID); err != nil {
		return err
	}
	if err := insertMeritItems(ctx, tx, record.ID, componentCompetency, record.CompetencyItems); err != nil {
		return err
	}
	if err := insertMeritItems(ctx, tx, record.ID, componentCulture, record.CultureItems); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) CommitTransition(ctx context.Context, commit TransitionCommit) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var query string
	var args []any
	switch commit.RecordType {
	case RecordTypeBonus:
		query = `
      UPDATE kpi_bonus_records
      SET status = $1, updated_at = $2,
          goal_score = COALESCE($3, goal_score),
          total_score = COALESCE($4, total_score),
          submitted_date = COALESCE($5, submitted_date),
          checked_date = COALESCE($6, checked_date),
          approved_date = COALESCE($7, approved_date),
          checker_feedback = COALESCE($8, checker_feedback),
          approver_feedback = COALESCE($9, approver_feedback),
          rejection_reason = COALESCE($10, rejection_reason)
      WHERE id = $11 AND status = $12 AND updated_at = $13
    `
		args = []any{
			commit.ToStatus, commit.Now,
			commit.GoalScore, commit.TotalScore,
			commit.SubmittedDate, commit.CheckedDate, commit.ApprovedDate,
			commit.CheckerFeedback, commit.ApproverFeedback, commit.RejectionReason,
			commit.RecordID, commit.FromStatus, commit.SeenUpdatedAt,
		}
	case RecordTypeMerit:
		query = `
      UPDATE kpi_merit_records
      SET status = $1, updated_at = $2,
          total_score = COALESCE($3, total_score),
          submitted_date = COALESCE($4, submitted_date),
          checked_date = COALESCE($5, checked_date),
          approved_date = COALESCE($6, approved_date),
          checker_feedback = COALESCE($7, checker_feedback),
          approver_feedback = COALESCE($8, approver_feedback),
          rejection_reason = COALESCE($9, rejection_reason)
      WHERE id = $10 AND status = $11 AND updated_at = $12
    `
		args = []any{
			commit.ToStatus, commit.Now,
			commit.TotalScore,
			commit.SubmittedDate, commit.CheckedDate, commit.ApprovedDate,
			commit.CheckerFeedback, commit.ApproverFeedback, commit.RejectionReason,
			commit.RecordID, commit.FromStatus, commit.SeenUpdatedAt,
		}
	default:
		return ErrRecordNotFound
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &StaleStateError{RecordType: commit.RecordType, RecordID: commit.RecordID}
	}

	if err := audit.Append(ctx, tx, commit.Entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) History(ctx context.Context, recordType RecordType, recordID string) ([]HistoryEntry, error) {
	return s.Ledger.ListByRecord(ctx, string(recordType), recordID)
}

func (s *PGStore) LastHistoryEntry(ctx context.Context, recordType RecordType, recordID string) (HistoryEntry, bool, error) {
	return s.Ledger.LastEntry(ctx, string(recordType), recordID)
}

// editRejection distinguishes "no such record" from "record left draft".
func (s *PGStore) editRejection(ctx context.Context, table, recordID string) error {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM "+table+" WHERE id = $1", recordID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return ErrNotEditable
}

func (s *PGStore) bonusItems(ctx context.Context, recordID string) ([]WeightedItem, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, weight, achievement, max_score
    FROM kpi_bonus_items
    WHERE record_id = $1
    ORDER BY position
  `, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PGStore) attachMeritItems(ctx context.Context, record *MeritRecord) error {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, weight, achievement, max_score, component
    FROM kpi_merit_items
    WHERE record_id = $1
    ORDER BY position
  `, record.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item WeightedItem
		var component string
		if err := rows.Scan(&item.ID, &item.Name, &item.Weight, &item.Achievement, &item.MaxScore, &component); err != nil {
			return err
		}
		switch component {
		case componentCulture:
			record.CultureItems = append(record.CultureItems, item)
		default:
			record.CompetencyItems = append(record.CompetencyItems, item)
		}
	}
	return rows.Err()
}

func insertBonusItems(ctx context.Context, tx pgx.Tx, recordID string, items []WeightedItem) error {
	for position, item := range items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO kpi_bonus_items (id, record_id, name, weight, achievement, max_score, position)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, item.ID, recordID, item.Name, item.Weight, item.Achievement, item.MaxScore, position); err != nil {
			return err
		}
	}
	return nil
}

func insertMeritItems(ctx context.Context, tx pgx.Tx, recordID, component string, items []WeightedItem) error {
	for position, item := range items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO kpi_merit_items (id, record_id, component, name, weight, achievement, max_score, position)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `, item.ID, recordID, component, item.Name, item.Weight, item.Achievement, item.MaxScore, position); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBonus(row rowScanner) (BonusRecord, error) {
	var record BonusRecord
	var checkerFeedback, approverFeedback, rejectionReason *string
	err := row.Scan(
		&record.ID, &record.EmployeeID, &record.Period, &record.Status,
		&record.SelfScore, &record.FeedbackScore, &record.Formula,
		&record.GoalScore, &record.TotalScore,
		&record.SubmittedDate, &record.CheckedDate, &record.ApprovedDate,
		&checkerFeedback, &approverFeedback, &rejectionReason,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return BonusRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return BonusRecord{}, err
	}
	record.CheckerFeedback = deref(checkerFeedback)
	record.ApproverFeedback = deref(approverFeedback)
	record.RejectionReason = deref(rejectionReason)
	return record, nil
}

func scanMerit(row rowScanner) (MeritRecord, error) {
	var record MeritRecord
	var checkerFeedback, approverFeedback, rejectionReason *string
	err := row.Scan(
		&record.ID, &record.EmployeeID, &record.Period, &record.Status,
		&record.KPIWeight, &record.KPIScore, &record.CompetencyWeight,
		&record.CultureWeight, &record.TotalScore,
		&record.SubmittedDate, &record.CheckedDate, &record.ApprovedDate,
		&checkerFeedback, &approverFeedback, &rejectionReason,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return MeritRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return MeritRecord{}, err
	}
	record.CheckerFeedback = deref(checkerFeedback)
	record.ApproverFeedback = deref(approverFeedback)
	record.RejectionReason = deref(rejectionReason)
	return record, nil
}

func scanItems(rows pgx.Rows) ([]WeightedItem, error) {
	var items []WeightedItem
	for rows.Next() {
		var item WeightedItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Weight, &item.Achievement, &item.MaxScore); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

var _ Store = (*PGStore)(nil)
