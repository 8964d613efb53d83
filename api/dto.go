/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Dates cross
  the boundary as ISO YYYY-MM-DD strings; amounts as decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID            string `json:"id"`
	SchoolID      string `json:"school_id"`
	Name          string `json:"name"`
	ClassGroupID  string `json:"class_group_id,omitempty"`
	AdmissionDate string `json:"admission_date,omitempty"`
}

// CreateStudentRequest is the request to create a student.
type CreateStudentRequest struct {
	ID            string `json:"id"`
	SchoolID      string `json:"school_id"`
	Name          string `json:"name"`
	ClassGroupID  string `json:"class_group_id"`
	AdmissionDate string `json:"admission_date"`
}

// FeeCycleDTO represents a fee cycle configuration.
type FeeCycleDTO struct {
	StudentID     string `json:"student_id"`
	SchoolID      string `json:"school_id"`
	CycleType     string `json:"cycle_type"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to,omitempty"`
	IsActive      bool   `json:"is_active"`
}

// CreateCycleRequest is the request to configure a fee cycle.
type CreateCycleRequest struct {
	SchoolID      string `json:"school_id"`
	CycleType     string `json:"cycle_type"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to"`
}

// GenerateScheduleRequest triggers period generation for a student.
type GenerateScheduleRequest struct {
	SchoolID     string `json:"school_id"`
	AcademicYear int    `json:"academic_year"`
}

// BillingPeriodDTO represents a billing period in API responses.
type BillingPeriodDTO struct {
	ID             string `json:"id"`
	StudentID      string `json:"student_id"`
	SchoolID       string `json:"school_id"`
	PeriodType     string `json:"period_type"`
	PeriodYear     int    `json:"period_year"`
	PeriodMonth    int    `json:"period_month,omitempty"`
	PeriodQuarter  int    `json:"period_quarter,omitempty"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	Status         string `json:"status"`
	ExpectedAmount string `json:"expected_amount,omitempty"`
	PaidAmount     string `json:"paid_amount,omitempty"`
	BalanceAmount  string `json:"balance_amount,omitempty"`
}

// ScheduleResultDTO reports a generation run.
type ScheduleResultDTO struct {
	Periods   []BillingPeriodDTO `json:"periods"`
	Inserted  int                `json:"inserted"`
	Conflicts int                `json:"conflicts"`
}

// OverduePeriodDTO is a period with its bill and live outstanding balance.
type OverduePeriodDTO struct {
	Period      BillingPeriodDTO `json:"period"`
	BillID      string           `json:"bill_id"`
	DueDate     string           `json:"due_date"`
	NetAmount   string           `json:"net_amount"`
	Outstanding string           `json:"outstanding"`
}

// DuesSummaryDTO is the per-student dues aggregate.
type DuesSummaryDTO struct {
	TotalPeriods   int    `json:"total_periods"`
	PaidPeriods    int    `json:"paid_periods"`
	PendingPeriods int    `json:"pending_periods"`
	TotalExpected  string `json:"total_expected"`
	TotalPaid      string `json:"total_paid"`
	TotalBalance   string `json:"total_balance"`
	OverdueAmount  string `json:"overdue_amount"`
}

// IssueBillRequest creates a bill for a pending period.
type IssueBillRequest struct {
	PeriodID  string `json:"period_id"`
	NetAmount string `json:"net_amount"`
	DueDay    int    `json:"due_day"` // 0 = unset, falls back to period end + grace
}

// BillDTO represents an issued bill.
type BillDTO struct {
	ID        string `json:"id"`
	PeriodID  string `json:"period_id"`
	DueDate   string `json:"due_date"`
	NetAmount string `json:"net_amount"`
}

// RecordPaymentRequest applies a payment to a bill.
type RecordPaymentRequest struct {
	Amount string `json:"amount"`
	PaidAt string `json:"paid_at"`
}

// PaymentResultDTO reports a recorded payment and the resulting state.
type PaymentResultDTO struct {
	PaymentID    string `json:"payment_id"`
	BillID       string `json:"bill_id"`
	Outstanding  string `json:"outstanding"`
	PeriodStatus string `json:"period_status"`
}

// MarkOverdueResultDTO reports a mark-overdue invocation.
type MarkOverdueResultDTO struct {
	Marked int `json:"marked"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStudentDTO(s billing.Student) StudentDTO {
	dto := StudentDTO{
		ID:           string(s.ID),
		SchoolID:     string(s.SchoolID),
		Name:         s.Name,
		ClassGroupID: s.ClassGroupID,
	}
	if !s.AdmissionDate.IsZero() {
		dto.AdmissionDate = s.AdmissionDate.String()
	}
	return dto
}

func toCycleDTO(c billing.FeeCycle) FeeCycleDTO {
	dto := FeeCycleDTO{
		StudentID:     string(c.StudentID),
		SchoolID:      string(c.SchoolID),
		CycleType:     string(c.CycleType),
		EffectiveFrom: c.EffectiveFrom.String(),
		IsActive:      c.IsActive,
	}
	if c.EffectiveTo != nil {
		dto.EffectiveTo = c.EffectiveTo.String()
	}
	return dto
}

func toPeriodDTO(p billing.BillingPeriod) BillingPeriodDTO {
	dto := BillingPeriodDTO{
		ID:            string(p.ID),
		StudentID:     string(p.StudentID),
		SchoolID:      string(p.SchoolID),
		PeriodType:    string(p.PeriodType),
		PeriodYear:    p.PeriodYear,
		PeriodMonth:   p.PeriodMonth,
		PeriodQuarter: p.PeriodQuarter,
		PeriodStart:   p.PeriodStart.String(),
		PeriodEnd:     p.PeriodEnd.String(),
		Status:        string(p.Status),
	}
	if p.ExpectedAmount != nil {
		dto.ExpectedAmount = p.ExpectedAmount.String()
	}
	if p.PaidAmount != nil {
		dto.PaidAmount = p.PaidAmount.String()
	}
	if p.BalanceAmount != nil {
		dto.BalanceAmount = p.BalanceAmount.String()
	}
	return dto
}

func toPeriodDTOs(periods []billing.BillingPeriod) []BillingPeriodDTO {
	dtos := make([]BillingPeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	return dtos
}
