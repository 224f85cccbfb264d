package evaluationhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/auth"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/evaluation"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/reports"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/platform/metrics"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/api"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/middleware"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluation.Service
	Machine *evaluation.Machine
	Users   *auth.Store
	Metrics *metrics.Collector
}

func NewHandler(service *evaluation.Service, machine *evaluation.Machine, users *auth.Store, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Machine: machine, Users: users, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Post("/weights/check", h.handleWeightsCheck)
		r.Route("/{recordType}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/", h.handleList)
			r.With(middleware.RequirePermission(auth.PermEvaluationsWrite)).Post("/", h.handleCreate)
			r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/{recordID}", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermEvaluationsWrite)).Put("/{recordID}/items", h.handleUpdateItems)
			r.With(middleware.RequirePermission(auth.PermEvaluationsSubmit)).Post("/{recordID}/submit", h.handleSubmit)
			r.With(middleware.RequirePermission(auth.PermEvaluationsCheck)).Post("/{recordID}/forward", h.handleForward)
			r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Post("/{recordID}/reject", h.handleReject)
			r.With(middleware.RequirePermission(auth.PermEvaluationsApprove)).Post("/{recordID}/approve", h.handleApprove)
			r.With(middleware.RequirePermission(auth.PermHistoryRead)).Get("/{recordID}/history", h.handleHistory)
			r.With(middleware.RequirePermission(auth.PermReportsRead)).Get("/{recordID}/scorecard.pdf", h.handleScorecard)
		})
	})
}

func recordTypeParam(r *http.Request) (evaluation.RecordType, bool) {
	return evaluation.ValidRecordType(chi.URLParam(r, "recordType"))
}

type bonusPayload struct {
	EmployeeID    string                    `json:"employeeId"`
	Period        string                    `json:"period"`
	Items         []evaluation.WeightedItem `json:"items"`
	SelfScore     *float64                  `json:"selfScore"`
	FeedbackScore *float64                  `json:"feedbackScore"`
	Formula       string                    `json:"formula"`
}

type meritPayload struct {
	EmployeeID       string                    `json:"employeeId"`
	Period           string                    `json:"period"`
	KPIWeight        float64                   `json:"kpiWeight"`
	KPIScore         float64                   `json:"kpiScore"`
	CompetencyWeight float64                   `json:"competencyWeight"`
	CompetencyItems  []evaluation.WeightedItem `json:"competencyItems"`
	CultureWeight    float64                   `json:"cultureWeight"`
	CultureItems     []evaluation.WeightedItem `json:"cultureItems"`
}

type transitionPayload struct {
	Feedback string `json:"feedback"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	recordType, ok := recordTypeParam(r)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown evaluation type", middleware.GetRequestID(r.Context()))
		return
	}

	switch recordType {
	case evaluation.RecordTypeBonus:
		var payload bonusPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
		// Employees always create for themselves, matching the list scoping.
		if payload.EmployeeID == "" || user.Role == auth.RoleEmployee {
			payload.EmployeeID = user.UserID
		}
		v := shared.NewValidator()
		v.Required("employeeId", payload.EmployeeID, "employee id required")
		v.Required("period", payload.Period, "period required")
		if v.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
		record, err := h.Service.CreateBonus(r.Context(), evaluation.BonusDraft{
			EmployeeID:    payload.EmployeeID,
			Period:        payload.Period,
			Items:         payload.Items,
			SelfScore:     payload.SelfScore,
			FeedbackScore: payload.FeedbackScore,
			Formula:       payload.Formula,
		})
		if err != nil {
			h.writeError(w, r, "create bonus", err)
			return
		}
		api.Created(w, record, middleware.GetRequestID(r.Context()))
	case evaluation.RecordTypeMerit:
		var payload meritPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
		if payload.EmployeeID == "" || user.Role == auth.RoleEmployee {
			payload.EmployeeID = user.UserID
		}
		v := shared.NewValidator()
		v.Required("employeeId", payload.EmployeeID, "employee id required")
		v.Required("period", payload.Period, "period required")
		if v.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
		record, err := h.Service.CreateMerit(r.Context(), evaluation.MeritDraft{
			EmployeeID:       payload.EmployeeID,
			Period:           payload.Period,
			KPIWeight:        payload.KPIWeight,
			KPIScore:         payload.KPIScore,
			CompetencyWeight: payload.CompetencyWeight,
			CompetencyItems:  payload.CompetencyItems,
			CultureWeight:    payload.CultureWeight,
			CultureItems:     payload.CultureItems,
		})
		if err != nil {
			h.writeError(w, r, "create merit", err)
			return
		}
		api.Created(w, record, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	recordType, ok := recordTypeParam(r)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown evaluation type", middleware.GetRequestID(r.Context()))
		return
	}

	// Employees only see their own records; reviewer roles may filter.
	employeeID := r.URL.Query().Get("employeeId")
	if user.Role == auth.RoleEmployee {
		employeeID = user.UserID
	}

	switch recordType {
	case evaluation.RecordTypeBonus:
		records, err := h.Service.ListBonus(r.Context(), employeeID)
		if err != nil {
			h.writeError(w, r, "list bonus", err)
			return
		}
		api.Success(w, records, middleware.GetRequestID(r.Context()))
	case evaluation.RecordTypeMerit:
		records, err := h.Service.ListMerit(r.Context(), employeeID)
		if err != nil {
			h.writeError(w, r, "list merit", err)
			return
		}
		api.Success(w, records, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	recordType, ok := recordTypeParam(r)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown evaluation type", middleware.GetRequestID(r.Context()))
		return
	}
	recordID := chi.URLParam(r, "recordID")

	switch recordType {
	case evaluation.RecordTypeBonus:
		record, err := h.Service.GetBonus(r.Context(), recordID)
		if err != nil {
			h.writeError(w, r, "get bonus", err)
			return
		}
		api.Success(w, record, middleware.GetRequestID(r.Context()))
	case evaluation.RecordTypeMerit:
		record, err := h.Service.GetMerit(r.Context(), recordID)
		if err != nil {
			h.writeError(w, r, "get merit", err)
			return
		}
		api.Success(w, record, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleUpdateItems(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	recordType, ok := recordTypeParam(r)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown evaluation type", middleware.GetRequestID(r.Context()))
		return
	}
	recordID := chi.URLParam(r, "recordID")

	if !h.ensureRecordOwner(w, r, recordType, recordID, user) {
		return
	}

	switch recordType {
	case evaluation.RecordTypeBonus:
		var payload bonusPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
		record, err := h.Service.UpdateBonusItems(r.Context(), recordID, evaluation.BonusDraft{
			Period:        payload.Period,
			Items:         payload.Items,
			SelfScore:     payload.SelfScore,
			FeedbackScore: payload.FeedbackScore,
			Formula:       payload.Formula,
		})
		if err != nil {
			h.writeError(w, r, "update bonus", err)
			return
		}
		api.Success(w, record, middleware.GetRequestID(r.Context()))
	case evaluation.RecordTypeMerit:
		var payload meritPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
		record, err := h.Service.UpdateMeritItems(r.Context(), recordID, evaluation.MeritDraft{
			Period:           payload.Period,
			KPIWeight:        payload.KPIWeight,
			KPIScore:         payload.KPIScore,
			CompetencyWeight: payload.CompetencyWeight,
			CompetencyItems:  payload.CompetencyItems,
			CultureWeight:    payload.CultureWeight,
			CultureItems:     payload.CultureItems,
		})
		if err != nil {
			h.writeError(w, r, "update merit", err)
			return
		}
		api.Success(w, record, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, evaluation.ActionSubmit)
}

func (h *Handler) handleForward(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, evaluation.ActionForward)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	// Rejection is open to both review stages; the machine decides which
	// stage the record is actually in.
	if !auth.HasPermission(user.Role, auth.PermEvaluationsCheck) && !auth.HasPermission(user.Role, auth.PermEvaluationsApprove) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
		return
	}
	h.handleTransition(w, r, evaluation.ActionReject)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, evaluation.ActionApprove)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, action evaluation.Action) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	recordType, ok := recordTypeParam(r)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown evaluation type", middleware.GetRequestID(r.Context()))
		return
	}
	recordID := chi.URLParam(r, "recordID")

	var payload transitionPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	var result evaluation.TransitionResult
	var err error
	switch action {
	case evaluation.ActionSubmit:
		result, err = h.Machine.Submit(r.Context(), recordType, recordID, user.UserID)
	case evaluation.ActionForward:
		result, err = h.Machine.Forward(r.Context(), recordType, recordID, user.UserID, payload.Feedback)
	case evaluation.ActionReject:
		result, err = h.Machine.Reject(r.Context(), recordType, recordID, user.UserID, payload.Feedback)
	case evaluation.ActionApprove:
		result, err = h.Machine.Approve(r.Context(), recordType, recordID, user.UserID, payload.Feedback)
	}
	if h.Metrics != nil {
		h.Metrics.RecordTransition(err == nil)
	}
	if err != nil {
		h.writeError(w, r, string(action), err)
		return
	}

	if result.Warning != nil {
		api.SuccessWithWarnings(w, result, []string{
			fmt.Sprintf("formula %q fell back to the default weighting: %s", result.Warning.Formula, result.Warning.Reason),
		}, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	recordType, ok := recordTypeParam(r)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown evaluation type", middleware.GetRequestID(r.Context()))
		return
	}
	recordID := chi.URLParam(r, "recordID")

	entries, err := h.Service.History(r.Context(), recordType, recordID)
	if err != nil {
		h.writeError(w, r, "history", err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

type weightsCheckPayload struct {
	Items  []evaluation.WeightedItem `json:"items"`
	Target *float64                  `json:"target"`
}

func (h *Handler) handleWeightsCheck(w http.ResponseWriter, r *http.Request) {
	var payload weightsCheckPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	target := evaluation.WeightTarget
	if payload.Target != nil {
		target = *payload.Target
	}
	api.Success(w, evaluation.ValidateWeights(payload.Items, target), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleScorecard(w http.ResponseWriter, r *http.Request) {
	recordType, ok := recordTypeParam(r)
	if !ok {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown evaluation type", middleware.GetRequestID(r.Context()))
		return
	}
	recordID := chi.URLParam(r, "recordID")

	card, err := h.buildScorecard(r, recordType, recordID)
	if err != nil {
		h.writeError(w, r, "scorecard", err)
		return
	}

	pdf, err := reports.Render(card)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "scorecard_failed", "failed to render scorecard", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-scorecard-%s.pdf", recordType, recordID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("scorecard write failed", "err", err)
	}
}

func (h *Handler) buildScorecard(r *http.Request, recordType evaluation.RecordType, recordID string) (reports.Scorecard, error) {
	history, err := h.Service.History(r.Context(), recordType, recordID)
	if err != nil {
		return reports.Scorecard{}, err
	}

	switch recordType {
	case evaluation.RecordTypeBonus:
		record, err := h.Service.GetBonus(r.Context(), recordID)
		if err != nil {
			return reports.Scorecard{}, err
		}
		card := reports.Scorecard{
			Title:        "KPI Bonus Scorecard",
			EmployeeName: h.employeeName(r, record.EmployeeID),
			Period:       record.Period,
			Status:       string(record.Status),
			TotalScore:   record.TotalScore,
			History:      history,
		}
		for _, item := range record.Items {
			card.Rows = append(card.Rows, itemRow(item))
		}
		return card, nil
	case evaluation.RecordTypeMerit:
		record, err := h.Service.GetMerit(r.Context(), recordID)
		if err != nil {
			return reports.Scorecard{}, err
		}
		card := reports.Scorecard{
			Title:        "KPI Merit Scorecard",
			EmployeeName: h.employeeName(r, record.EmployeeID),
			Period:       record.Period,
			Status:       string(record.Status),
			TotalScore:   record.TotalScore,
			History:      history,
		}
		card.Rows = append(card.Rows, reports.ScorecardRow{
			Name:         "KPI achievement",
			Weight:       record.KPIWeight,
			Achievement:  fmt.Sprintf("%.2f", record.KPIScore),
			Contribution: record.KPIScore / 100 * record.KPIWeight,
		})
		for _, item := range record.CompetencyItems {
			card.Rows = append(card.Rows, itemRow(item))
		}
		for _, item := range record.CultureItems {
			card.Rows = append(card.Rows, itemRow(item))
		}
		return card, nil
	}
	return reports.Scorecard{}, evaluation.ErrRecordNotFound
}

// ensureRecordOwner blocks employees from editing records they do not own.
// Reviewer and admin roles pass through; their access is gated by
// permissions.
func (h *Handler) ensureRecordOwner(w http.ResponseWriter, r *http.Request, recordType evaluation.RecordType, recordID string, user auth.UserContext) bool {
	if user.Role != auth.RoleEmployee {
		return true
	}
	var employeeID string
	switch recordType {
	case evaluation.RecordTypeBonus:
		record, err := h.Service.GetBonus(r.Context(), recordID)
		if err != nil {
			h.writeError(w, r, "get bonus", err)
			return false
		}
		employeeID = record.EmployeeID
	case evaluation.RecordTypeMerit:
		record, err := h.Service.GetMerit(r.Context(), recordID)
		if err != nil {
			h.writeError(w, r, "get merit", err)
			return false
		}
		employeeID = record.EmployeeID
	}
	if employeeID != user.UserID {
		api.Fail(w, http.StatusForbidden, "forbidden", "records may only be edited by their employee", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

func itemRow(item evaluation.WeightedItem) reports.ScorecardRow {
	row := reports.ScorecardRow{
		Name:        item.Name,
		Weight:      item.Weight,
		Achievement: "-",
	}
	if item.Achievement != nil {
		row.Achievement = fmt.Sprintf("%.2f", *item.Achievement)
		row.Contribution = evaluation.NormalizeScore(*item.Achievement, item.MaxScore) / 100 * item.Weight
	}
	return row
}

func (h *Handler) employeeName(r *http.Request, employeeID string) string {
	if h.Users == nil {
		return employeeID
	}
	user, err := h.Users.UserByID(r.Context(), employeeID)
	if err != nil {
		return employeeID
	}
	return user.Name
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var (
		weightErr   *evaluation.WeightMismatchError
		incomplete  *evaluation.IncompleteScoreError
		illegal     *evaluation.IllegalTransitionError
		feedbackErr *evaluation.MissingFeedbackError
		stale       *evaluation.StaleStateError
	)
	switch {
	case errors.Is(err, evaluation.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation record not found", requestID)
	case errors.Is(err, evaluation.ErrNotEditable):
		api.Fail(w, http.StatusConflict, "not_editable", err.Error(), requestID)
	case errors.As(err, &weightErr):
		api.FailWithDetails(w, http.StatusBadRequest, "weight_mismatch", weightErr.Error(), map[string]any{
			"collection": weightErr.Collection,
			"total":      weightErr.Total,
			"target":     weightErr.Target,
			"delta":      weightErr.Delta,
		}, requestID)
	case errors.As(err, &incomplete):
		api.FailWithDetails(w, http.StatusBadRequest, "incomplete_scores", incomplete.Error(), map[string]any{
			"itemIds": incomplete.ItemIDs,
		}, requestID)
	case errors.As(err, &illegal):
		api.Fail(w, http.StatusConflict, "illegal_transition", illegal.Error(), requestID)
	case errors.As(err, &feedbackErr):
		api.Fail(w, http.StatusBadRequest, "feedback_required", feedbackErr.Error(), requestID)
	case errors.As(err, &stale):
		api.Fail(w, http.StatusConflict, "stale_state", stale.Error(), requestID)
	default:
		slog.Error("evaluation operation failed", "operation", operation, "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "evaluation_failed", "evaluation operation failed", requestID)
	}
}
