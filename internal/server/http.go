package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/repository"
)

// maxUploadBytes bounds an import request body.
const maxUploadBytes = 32 << 20

type HTTPHandler struct {
	api    *API
	svcs   *Services
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHTTPHandler registers the inventory REST surface.
func NewHTTPHandler(svcs *Services, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTPHandler{api: NewAPI(svcs, logger), svcs: svcs, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /inventory/alarm/check", h.checkAlarm)
	h.mux.HandleFunc("PUT /inventory/alarm/confirm", h.confirmBaseline)
	h.mux.HandleFunc("PATCH /inventory/alarm/bulk-confirm", h.bulkConfirm)
	h.mux.HandleFunc("GET /inventory/alarm", h.listAlarms)

	h.mux.HandleFunc("GET /inventory/rows", h.listRows)
	h.mux.HandleFunc("PATCH /inventory/rows/{id}", h.editRow)
	h.mux.HandleFunc("DELETE /inventory/rows/{id}", h.deleteRow)

	h.mux.HandleFunc("GET /inventory/groups", h.listGroups)
	h.mux.HandleFunc("DELETE /inventory/groups/{fileGroup}", h.deleteGroup)

	h.mux.HandleFunc("POST /inventory/import", h.importFile)
	h.mux.HandleFunc("GET /inventory/export", h.exportFile)
	h.mux.HandleFunc("GET /inventory/briefing", h.briefing)

	h.mux.HandleFunc("GET /healthz", h.health)
	return h
}

// ServeHTTP tags each request with an id and a scoped logger, logs it and recovers panics.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.New().String()
	}
	logger := h.logger.With("req_id", reqID)
	ctx := common.WithLogger(common.WithRequestID(r.Context(), reqID), logger)
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	sw.Header().Set("X-Request-ID", reqID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("http.panic", "panic", fmt.Sprint(rec), "path", r.URL.Path)
			writeError(sw, logger, common.NewAppError("INTERNAL", "internal error", common.ErrInternal))
		}
		logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}()
	h.mux.ServeHTTP(sw, r.WithContext(ctx))
}

func (h *HTTPHandler) checkAlarm(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decode(w, r, "check", &req) {
		return
	}
	res, err := h.api.CheckAlarm(r.Context(), req)
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) confirmBaseline(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !h.decode(w, r, "confirm", &req) {
		return
	}
	res, err := h.api.ConfirmBaseline(r.Context(), req)
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) bulkConfirm(w http.ResponseWriter, r *http.Request) {
	var req BulkConfirmRequest
	if !h.decode(w, r, "bulk-confirm", &req) {
		return
	}
	res, err := h.api.BulkConfirm(r.Context(), req)
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) listAlarms(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.ListAlarms(r.Context(), ListAlarmsRequest{FileGroup: r.URL.Query().Get("fileGroup")})
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) listRows(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.ListRows(r.Context(), r.URL.Query().Get("fileGroup"))
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) editRow(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseUUID("id", r.PathValue("id"))
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	var req EditRequest
	if !h.decode(w, r, "edit", &req) {
		return
	}
	res, err := h.api.EditRow(r.Context(), id, req)
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) deleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseUUID("id", r.PathValue("id"))
	if err == nil {
		err = h.api.DeleteRow(r.Context(), id)
	}
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) listGroups(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.ListGroups(r.Context())
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	res, err := h.api.DeleteGroup(r.Context(), r.PathValue("fileGroup"))
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) importFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = r.Header.Get("Content-Type")
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = common.InvalidInput(fmt.Sprintf("file larger than %d bytes", tooBig.Limit))
		}
		h.respond(w, r, nil, err)
		return
	}
	res, err := h.svcs.Importer.ImportBytes(r.Context(), q.Get("fileGroup"), name, data)
	if err == nil && !res.Deduplicated {
		w.Header().Set("Location", "/inventory/rows?fileGroup="+url.QueryEscape(res.FileGroup))
	}
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) exportFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	group := q.Get("fileGroup")
	if err := common.NewValidator().
		Field("fileGroup", group, common.Required).
		Field("format", q.Get("format"), common.OneOf("", "projected", "raw")).
		Error(); err != nil {
		h.respond(w, r, nil, err)
		return
	}

	var (
		data []byte
		err  error
	)
	if q.Get("format") == "raw" {
		data, err = h.svcs.Exporter.RawXLSX(r.Context(), group)
	} else {
		data, err = h.svcs.Exporter.ProjectedXLSX(r.Context(), group)
	}
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	w.Header().Set("Content-Type", constants.MimeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s.xlsx", url.PathEscape(group)))
	_, _ = w.Write(data)
}

func (h *HTTPHandler) briefing(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("fileGroup")
	if err := common.NewValidator().Field("fileGroup", group, common.Required).Error(); err != nil {
		h.respond(w, r, nil, err)
		return
	}
	res, err := h.svcs.Briefing.Brief(r.Context(), group)
	h.respond(w, r, res, err)
}

func (h *HTTPHandler) health(w http.ResponseWriter, r *http.Request) {
	if h.svcs.DB != nil {
		if err := repository.HealthCheck(r.Context(), h.svcs.DB, 2*time.Second, h.logger); err != nil {
			h.respond(w, r, nil, common.NewAppError("UNAVAILABLE", "database unavailable", errors.Join(common.ErrUnavailable, err)))
			return
		}
	}
	h.respond(w, r, map[string]string{"status": "ok"}, nil)
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err == nil {
		err = decodeRequest(schema, body, dst)
	}
	if err != nil {
		h.respond(w, r, nil, err)
		return false
	}
	return true
}

func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	logger := common.LoggerFromContext(r.Context(), h.logger)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, logger, http.StatusOK, body)
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := common.HTTPStatus(err)
	body := errorBody{Error: http.StatusText(code), Message: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		body.Message = appErr.Message
	}
	if code >= http.StatusInternalServerError {
		logger.Error("http.error", "status", code, "error", err)
		body.Message = http.StatusText(code)
	} else {
		logger.Warn("http.rejected", "status", code, "error", err)
	}
	writeJSON(w, logger, code, body)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("http.encode_failed", "error", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
