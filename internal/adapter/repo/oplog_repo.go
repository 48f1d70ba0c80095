package repo

import (
	"context"
	"encoding/json"

	"textvision/internal/domain"
	"textvision/internal/infra"
	"textvision/internal/sqlinline"
)

// OperationLogRepositoryPG appends rows to operation_logs.
type OperationLogRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewOperationLogRepository(sql infra.SQLExecutor) *OperationLogRepositoryPG {
	return &OperationLogRepositoryPG{sql: sql}
}

func (r *OperationLogRepositoryPG) Record(ctx context.Context, entry domain.OperationLog) error {
	detail := entry.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return storeErr("marshal operation detail", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertOperationLog,
		entry.UserID,
		entry.Operation,
		entry.TargetID,
		raw,
		entry.IP,
		entry.Country,
		entry.UserAgent,
	)
	if err != nil {
		return storeErr("record operation", err)
	}
	return nil
}

var _ domain.OperationLogRepository = (*OperationLogRepositoryPG)(nil)
