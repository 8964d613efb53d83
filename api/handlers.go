/*
handlers.go - HTTP API handlers for the fee billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                        List students
    POST   /api/students                        Create student
    GET    /api/students/{id}                   Get student
    GET    /api/students/{id}/cycles            List fee cycles
    POST   /api/students/{id}/cycles            Configure a fee cycle
    POST   /api/students/{id}/schedule          Generate fee schedule
    GET    /api/students/{id}/periods/pending   Pending periods
    GET    /api/students/{id}/periods/overdue   Overdue periods (live balance)
    GET    /api/students/{id}/dues              Dues summary

  Billing:
    POST   /api/bills                           Issue a bill for a period
    POST   /api/bills/{id}/payments             Record a payment
    POST   /api/periods/{id}/waive              Waive a period (admin)

  Admin:
    POST   /api/admin/mark-overdue              Run the mark-overdue procedure
    GET    /api/admin/overdue-runs              Scheduler run history

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (natural-key collision, duplicate bill)
  - 422: Lifecycle violation (invalid status transition)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"encoding/json"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/billing"
	"github.com/warp/fee-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Generator *billing.Generator
	Ledger    *billing.LedgerReader
}

// NewHandler creates a new handler over the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:     store,
		Generator: billing.NewGenerator(store),
		Ledger:    billing.NewLedgerReader(store),
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns students, optionally filtered by school.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	schoolID := billing.SchoolID(r.URL.Query().Get("school_id"))
	students, err := h.Store.ListStudents(r.Context(), schoolID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := billing.StudentID(chi.URLParam(r, "id"))
	student, err := h.Store.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*student))
}

// CreateStudent registers a student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.SchoolID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id, school_id and name are required", nil)
		return
	}

	student := billing.Student{
		ID:           billing.StudentID(req.ID),
		SchoolID:     billing.SchoolID(req.SchoolID),
		Name:         req.Name,
		ClassGroupID: req.ClassGroupID,
	}
	if req.AdmissionDate != "" {
		d, err := billing.ParseDate(req.AdmissionDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid admission_date format (use YYYY-MM-DD)", err)
			return
		}
		student.AdmissionDate = d
	}

	if err := h.Store.InsertStudent(r.Context(), student); err != nil {
		if billing.IsConflict(err) {
			writeError(w, http.StatusConflict, "Student already exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(student))
}

// =============================================================================
// FEE CYCLE HANDLERS
// =============================================================================

// ListCycles returns all of a student's fee cycles.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	id := billing.StudentID(chi.URLParam(r, "id"))
	cycles, err := h.Store.CyclesByStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fee cycles", err)
		return
	}

	dtos := make([]FeeCycleDTO, len(cycles))
	for i, c := range cycles {
		dtos[i] = toCycleDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCycle configures a fee cycle for a student.
func (h *Handler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	id := billing.StudentID(chi.URLParam(r, "id"))

	var req CreateCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cycleType := billing.CycleType(req.CycleType)
	if !cycleType.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid cycle_type (monthly, quarterly, yearly, one-time)", nil)
		return
	}
	from, err := billing.ParseDate(req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_from format (use YYYY-MM-DD)", err)
		return
	}

	cycle := billing.FeeCycle{
		StudentID:     id,
		SchoolID:      billing.SchoolID(req.SchoolID),
		CycleType:     cycleType,
		EffectiveFrom: from,
		IsActive:      true,
	}
	if req.EffectiveTo != "" {
		to, err := billing.ParseDate(req.EffectiveTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid effective_to format (use YYYY-MM-DD)", err)
			return
		}
		cycle.EffectiveTo = &to
	}

	if err := h.Store.InsertCycle(r.Context(), cycle); err != nil {
		if billing.IsConflict(err) {
			writeError(w, http.StatusConflict, "Fee cycle already exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create fee cycle", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCycleDTO(cycle))
}

// =============================================================================
// SCHEDULE GENERATION
// =============================================================================

// GenerateSchedule runs the period generator for a student and academic year.
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id := billing.StudentID(chi.URLParam(r, "id"))

	var req GenerateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AcademicYear < 1900 || req.AcademicYear > 3000 {
		writeError(w, http.StatusBadRequest, "Invalid academic_year", nil)
		return
	}

	result, err := h.Generator.GenerateStudentFeeSchedule(r.Context(), id, billing.SchoolID(req.SchoolID), req.AcademicYear)
	if err != nil {
		if billing.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Student not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to generate schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, ScheduleResultDTO{
		Periods:   toPeriodDTOs(result.Periods),
		Inserted:  result.Inserted,
		Conflicts: result.Conflicts,
	})
}

// =============================================================================
// LEDGER READ HANDLERS
// =============================================================================

// GetPendingPeriods returns the student's unsettled periods.
func (h *Handler) GetPendingPeriods(w http.ResponseWriter, r *http.Request) {
	id := billing.StudentID(chi.URLParam(r, "id"))
	periods, err := h.Ledger.PendingPeriods(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pending periods", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTOs(periods))
}

// GetOverduePeriods returns periods past due with money outstanding.
// Accepts ?as_of=YYYY-MM-DD for reporting views; defaults to today.
func (h *Handler) GetOverduePeriods(w http.ResponseWriter, r *http.Request) {
	id := billing.StudentID(chi.URLParam(r, "id"))

	asOf := billing.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		d, err := billing.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
		asOf = d
	}

	overdue, err := h.Ledger.OverduePeriods(r.Context(), id, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get overdue periods", err)
		return
	}

	dtos := make([]OverduePeriodDTO, len(overdue))
	for i, o := range overdue {
		dtos[i] = OverduePeriodDTO{
			Period:      toPeriodDTO(o.Period),
			BillID:      string(o.Bill.ID),
			DueDate:     o.Bill.DueDate.String(),
			NetAmount:   o.Bill.NetAmount.String(),
			Outstanding: o.Outstanding.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDues returns the student's dues aggregate.
func (h *Handler) GetDues(w http.ResponseWriter, r *http.Request) {
	id := billing.StudentID(chi.URLParam(r, "id"))
	summary, err := h.Ledger.StudentTotalDues(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get dues summary", err)
		return
	}
	writeJSON(w, http.StatusOK, DuesSummaryDTO{
		TotalPeriods:   summary.TotalPeriods,
		PaidPeriods:    summary.PaidPeriods,
		PendingPeriods: summary.PendingPeriods,
		TotalExpected:  summary.TotalExpected.String(),
		TotalPaid:      summary.TotalPaid.String(),
		TotalBalance:   summary.TotalBalance.String(),
		OverdueAmount:  summary.OverdueAmount.String(),
	})
}

// =============================================================================
// BILL ISSUANCE AND PAYMENTS
// =============================================================================

// IssueBill creates a bill for a pending period. The due date comes from the
// due-date rule: configured due day clamped to the period end, or period end
// plus the default grace.
func (h *Handler) IssueBill(w http.ResponseWriter, r *http.Request) {
	var req IssueBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	netAmount, err := decimal.NewFromString(req.NetAmount)
	if err != nil || netAmount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid net_amount", err)
		return
	}

	ctx := r.Context()
	period, err := h.Store.GetPeriod(ctx, billing.PeriodID(req.PeriodID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get period", err)
		return
	}
	if period == nil {
		writeError(w, http.StatusNotFound, "Billing period not found", nil)
		return
	}
	if !billing.CanTransition(period.Status, billing.StatusBilled) {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Period in status %q cannot be billed", period.Status), billing.ErrInvalidTransition)
		return
	}

	bill := billing.FeeBill{
		ID:        billing.BillID("bill-" + req.PeriodID),
		PeriodID:  period.ID,
		DueDate:   billing.CalculateDueDate(period.PeriodStart, period.PeriodEnd, req.DueDay),
		NetAmount: netAmount,
	}
	if err := h.Store.InsertBill(ctx, bill); err != nil {
		if billing.IsConflict(err) {
			writeError(w, http.StatusConflict, "Period is already billed", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to insert bill", err)
		return
	}

	zero := decimal.Zero
	if err := h.Store.UpdatePeriodAmounts(ctx, period.ID, &netAmount, &zero, &netAmount); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update period amounts", err)
		return
	}
	if err := h.Store.UpdatePeriodStatus(ctx, period.ID, billing.StatusBilled); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update period status", err)
		return
	}

	writeJSON(w, http.StatusCreated, BillDTO{
		ID:        string(bill.ID),
		PeriodID:  string(bill.PeriodID),
		DueDate:   bill.DueDate.String(),
		NetAmount: bill.NetAmount.String(),
	})
}

// RecordPayment applies a payment to a bill, recomputes the live balance and
// advances the period's status when the lifecycle allows it. A partial
// payment on an already-overdue period leaves the stored status overdue.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	billID := billing.BillID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	ctx := r.Context()
	bill, err := h.Store.GetBill(ctx, billID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get bill", err)
		return
	}
	if bill == nil {
		writeError(w, http.StatusNotFound, "Bill not found", nil)
		return
	}
	period, err := h.Store.GetPeriod(ctx, bill.PeriodID)
	if err != nil || period == nil {
		writeError(w, http.StatusInternalServerError, "Failed to get period for bill", err)
		return
	}
	if period.Status.IsTerminal() {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Period in status %q accepts no payments", period.Status), billing.ErrInvalidTransition)
		return
	}

	payment := billing.FeePayment{
		ID:         billing.PaymentID(fmt.Sprintf("pay-%s-%d", billID, time.Now().UnixNano())),
		BillID:     billID,
		AmountPaid: amount,
	}
	if req.PaidAt != "" {
		d, err := billing.ParseDate(req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_at format (use YYYY-MM-DD)", err)
			return
		}
		payment.PaidAt = d
	}
	if err := h.Store.InsertPayment(ctx, payment); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record payment", err)
		return
	}

	payments, err := h.Store.PaymentsByBill(ctx, billID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
		return
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.AmountPaid)
	}
	outstanding := bill.NetAmount.Sub(paid)

	if err := h.Store.UpdatePeriodAmounts(ctx, period.ID, nil, &paid, &outstanding); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update period amounts", err)
		return
	}

	next := billing.StatusPartiallyPaid
	if !outstanding.IsPositive() {
		next = billing.StatusPaid
	}
	status := period.Status
	if billing.CanTransition(period.Status, next) {
		if err := h.Store.UpdatePeriodStatus(ctx, period.ID, next); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update period status", err)
			return
		}
		status = next
	}

	writeJSON(w, http.StatusCreated, PaymentResultDTO{
		PaymentID:    string(payment.ID),
		BillID:       string(billID),
		Outstanding:  outstanding.String(),
		PeriodStatus: string(status),
	})
}

// WaivePeriod moves a non-terminal period to waived (administrative override).
func (h *Handler) WaivePeriod(w http.ResponseWriter, r *http.Request) {
	id := billing.PeriodID(chi.URLParam(r, "id"))

	ctx := r.Context()
	period, err := h.Store.GetPeriod(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get period", err)
		return
	}
	if period == nil {
		writeError(w, http.StatusNotFound, "Billing period not found", nil)
		return
	}
	if !billing.CanTransition(period.Status, billing.StatusWaived) {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Period in status %q cannot be waived", period.Status), billing.ErrInvalidTransition)
		return
	}
	if err := h.Store.UpdatePeriodStatus(ctx, id, billing.StatusWaived); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update period status", err)
		return
	}

	period.Status = billing.StatusWaived
	writeJSON(w, http.StatusOK, toPeriodDTO(*period))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerMarkOverdue invokes the mark-overdue procedure once.
func (h *Handler) TriggerMarkOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := billing.MarkOverduePeriods(r.Context(), h.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Mark-overdue procedure failed", err)
		return
	}
	writeJSON(w, http.StatusOK, MarkOverdueResultDTO{Marked: n})
}

// ListOverdueRuns returns scheduler run history.
func (h *Handler) ListOverdueRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListOverdueRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get overdue runs", err)
		return
	}

	type RunDTO struct {
		ID     string `json:"id"`
		Marked int    `json:"marked"`
		Error  string `json:"error,omitempty"`
		RanAt  string `json:"ran_at"`
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = RunDTO{
			ID:     run.ID,
			Marked: run.Marked,
			Error:  run.Error,
			RanAt:  run.RanAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
