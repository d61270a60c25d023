package repository

import (
	"context"

	"github.com/webagency/backend/internal/model"
)

// CreateAdminLog creates an admin action log entry
func (r *Repository) CreateAdminLog(ctx context.Context, log *model.AdminLog) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO admin_logs (id, admin_id, action, target_user_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ID, log.AdminID, log.Action, log.TargetUserID, log.Details, log.CreatedAt)
	return err
}

// GetAdminLogs retrieves admin action logs
func (r *Repository) GetAdminLogs(ctx context.Context, limit, offset int) ([]model.AdminLog, error) {
	logs := []model.AdminLog{}
	err := r.q.SelectContext(ctx, &logs, `
		SELECT id, admin_id, action, target_user_id, details, created_at FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	return logs, err
}
