package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord 一次对账运行的元数据
type RunRecord struct {
	ID            int64           `json:"id"`
	ReportID      string          `json:"report_id"`
	OfficialFile  string          `json:"official_file"`
	ServiceFile   string          `json:"service_file"`
	OfficialKept  int             `json:"official_kept"`
	ServiceKept   int             `json:"service_kept"`
	OrderCount    int             `json:"order_count"`
	MatchedCount  int             `json:"matched_count"`
	MissingCount  int             `json:"missing_count"`
	AbnormalCount int             `json:"abnormal_count"`
	LossCount     int             `json:"loss_count"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	CreatedAt     time.Time       `json:"created_at"`
}

const defaultRunLimit = 20

// CreateRun 写入运行记录，返回 run id
func (s *Store) CreateRun(ctx context.Context, r RunRecord) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recon_runs (
			report_id, official_file, service_file, official_kept, service_kept,
			order_count, matched_count, missing_count, abnormal_count, loss_count,
			total_profit, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ReportID, r.OfficialFile, r.ServiceFile, r.OfficialKept, r.ServiceKept,
		r.OrderCount, r.MatchedCount, r.MissingCount, r.AbnormalCount, r.LossCount,
		r.TotalProfit.String(), r.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// ListRuns 按时间倒序返回最近的运行记录
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, official_file, service_file, official_kept, service_kept,
			order_count, matched_count, missing_count, abnormal_count, loss_count,
			total_profit, created_at
		FROM recon_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		var r RunRecord
		var profit string
		if err := rows.Scan(
			&r.ID, &r.ReportID, &r.OfficialFile, &r.ServiceFile, &r.OfficialKept, &r.ServiceKept,
			&r.OrderCount, &r.MatchedCount, &r.MissingCount, &r.AbnormalCount, &r.LossCount,
			&profit, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.TotalProfit, err = decimal.NewFromString(profit)
		if err != nil {
			return nil, fmt.Errorf("invalid total_profit %q for run %d: %w", profit, r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
