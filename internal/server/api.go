package server

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/alarm"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
	"github.com/stockwatch/stockwatch/internal/projection"
)

type CheckRequest struct {
	RowID  string        `json:"rowId"`
	Fields entity.Fields `json:"fields,omitempty"`
}

type ConfirmRequest struct {
	RowID    string   `json:"rowId"`
	Baseline *float64 `json:"baseline,omitempty"`
}

type BulkConfirmRequest struct {
	FileGroup string   `json:"fileGroup,omitempty"`
	RowIDs    []string `json:"rowIds,omitempty"`
}

type EditRequest struct {
	Fields entity.Fields `json:"fields"`
}

type ListAlarmsRequest struct {
	FileGroup string `json:"fileGroup,omitempty"`
}

// AlarmRow is one alarming row as listed to clients.
type AlarmRow struct {
	FileGroup string `json:"fileGroup"`
	projection.Projected
}

// RowResponse is an edited row with its display projection.
type RowResponse struct {
	Row       *entity.Row          `json:"row"`
	Projected projection.Projected `json:"projected"`
}

// GroupSummary is one file group with the spreadsheets appended to it.
type GroupSummary struct {
	FileGroup string               `json:"fileGroup"`
	Files     []*entity.ImportFile `json:"files"`
}

// DeleteGroupResult counts what a group delete removed.
type DeleteGroupResult struct {
	FileGroup    string `json:"fileGroup"`
	RowsDeleted  int    `json:"rowsDeleted"`
	FilesDeleted int    `json:"filesDeleted"`
}

// API holds the transport-independent request handling shared by REST and gRPC.
type API struct {
	svcs   *Services
	logger *slog.Logger
}

func NewAPI(svcs *Services, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{svcs: svcs, logger: logger}
}

func (a *API) CheckAlarm(ctx context.Context, req CheckRequest) (alarm.CheckResult, error) {
	id, err := common.ParseUUID("rowId", req.RowID)
	if err != nil {
		return alarm.CheckResult{}, err
	}
	return a.svcs.Engine.Check(ctx, id, req.Fields)
}

func (a *API) ConfirmBaseline(ctx context.Context, req ConfirmRequest) (alarm.ConfirmResult, error) {
	id, err := common.ParseUUID("rowId", req.RowID)
	if err != nil {
		return alarm.ConfirmResult{}, err
	}
	return a.svcs.Engine.Confirm(ctx, id, req.Baseline)
}

// BulkConfirm prefers explicit row ids over the file group.
func (a *API) BulkConfirm(ctx context.Context, req BulkConfirmRequest) (alarm.BulkResult, error) {
	sel := alarm.Selection{FileGroup: req.FileGroup}
	for _, s := range req.RowIDs {
		id, err := common.ParseUUID("rowIds", s)
		if err != nil {
			return alarm.BulkResult{}, err
		}
		sel.RowIDs = append(sel.RowIDs, id)
	}
	return a.svcs.Engine.BulkConfirm(ctx, sel)
}

func (a *API) ListAlarms(ctx context.Context, req ListAlarmsRequest) ([]AlarmRow, error) {
	rows, err := a.svcs.Engine.ListAlarming(ctx, req.FileGroup)
	if err != nil {
		return nil, err
	}
	out := make([]AlarmRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, AlarmRow{FileGroup: r.FileGroup, Projected: a.svcs.Projector.Project(r, r.SequenceIndex)})
	}
	return out, nil
}

func (a *API) EditRow(ctx context.Context, id uuid.UUID, req EditRequest) (RowResponse, error) {
	row, err := a.svcs.Engine.EditFields(ctx, id, req.Fields)
	if err != nil {
		return RowResponse{}, err
	}
	return RowResponse{Row: row, Projected: a.svcs.Projector.Project(row, row.SequenceIndex)}, nil
}

// ListRows projects a whole file group in sequence order.
func (a *API) ListRows(ctx context.Context, fileGroup string) ([]projection.Projected, error) {
	if err := common.NewValidator().Field("fileGroup", fileGroup, common.Required).Error(); err != nil {
		return nil, err
	}
	rows, err := a.svcs.Rows.RangeByFileGroup(ctx, fileGroup)
	if err != nil {
		return nil, err
	}
	return a.svcs.Projector.ProjectAll(rows), nil
}

func (a *API) DeleteRow(ctx context.Context, id uuid.UUID) error {
	return a.svcs.Engine.Delete(ctx, id)
}

func (a *API) ListGroups(ctx context.Context) ([]GroupSummary, error) {
	groups, err := a.svcs.Rows.ListFileGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		files, err := a.svcs.Files.ListByFileGroup(ctx, g)
		if err != nil {
			return nil, err
		}
		if files == nil {
			files = []*entity.ImportFile{}
		}
		out = append(out, GroupSummary{FileGroup: g, Files: files})
	}
	return out, nil
}

// DeleteGroup drops every row of a group and its import log, so the same files can be imported again.
func (a *API) DeleteGroup(ctx context.Context, fileGroup string) (DeleteGroupResult, error) {
	if err := common.NewValidator().Field("fileGroup", fileGroup, common.Required).Error(); err != nil {
		return DeleteGroupResult{}, err
	}
	rows, err := a.svcs.Rows.DeleteFileGroup(ctx, fileGroup)
	if err != nil {
		return DeleteGroupResult{}, err
	}
	files, err := a.svcs.Files.DeleteByFileGroup(ctx, fileGroup)
	if err != nil {
		return DeleteGroupResult{}, err
	}
	if rows == 0 && files == 0 {
		return DeleteGroupResult{}, common.NotFound("file group", fileGroup)
	}
	a.logger.Info("inventory.group_deleted", "file_group", fileGroup, "rows", rows, "files", files)
	return DeleteGroupResult{FileGroup: fileGroup, RowsDeleted: rows, FilesDeleted: files}, nil
}
