package discharge

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Discharge statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Discharge records a patient leaving the hospital, together with the
// generated summary text handed to the patient.
type Discharge struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	BedID         *uuid.UUID `json:"bed_id,omitempty"`
	AdmissionDate time.Time  `json:"admission_date"`
	DischargeDate time.Time  `json:"discharge_date"`
	Diagnosis     string     `json:"diagnosis"`
	Treatment     string     `json:"treatment"`
	Medications   string     `json:"medications"`
	FollowUp      string     `json:"follow_up"`
	Summary       string     `json:"summary"`
	Status        string     `json:"status"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DurationDays is the stay length used in the summary. The discharge date is
// always strictly after admission, so the minimum stay is one day.
func (d *Discharge) DurationDays() int {
	return int(d.DischargeDate.Sub(d.AdmissionDate).Hours() / 24)
}

// SummaryInput carries the resolved names needed to render the summary.
type SummaryInput struct {
	PatientName string
	DoctorName  string
	BedLabel    string
}

// BuildSummary renders the discharge summary text. The output is a pure
// function of the record and the input, so regenerating it for an unchanged
// record yields byte-identical text.
func (d *Discharge) BuildSummary(in SummaryInput) string {
	var b strings.Builder
	b.WriteString("DISCHARGE SUMMARY\n")
	b.WriteString("=================\n\n")
	fmt.Fprintf(&b, "Patient: %s\n", in.PatientName)
	fmt.Fprintf(&b, "Attending Doctor: %s\n", in.DoctorName)
	if in.BedLabel != "" {
		fmt.Fprintf(&b, "Bed: %s\n", in.BedLabel)
	}
	fmt.Fprintf(&b, "Admitted: %s\n", d.AdmissionDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Discharged: %s\n", d.DischargeDate.Format("2006-01-02"))
	days := d.DurationDays()
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	fmt.Fprintf(&b, "Duration of Stay: %d %s\n\n", days, unit)
	fmt.Fprintf(&b, "Diagnosis:\n%s\n\n", d.Diagnosis)
	fmt.Fprintf(&b, "Treatment Provided:\n%s\n\n", d.Treatment)
	fmt.Fprintf(&b, "Medications on Discharge:\n%s\n\n", d.Medications)
	fmt.Fprintf(&b, "Follow-up Instructions:\n%s\n", d.FollowUp)
	return b.String()
}

// CreateRequest carries the fields needed to record a discharge. Dates are
// YYYY-MM-DD.
type CreateRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	BedID         *uuid.UUID `json:"bed_id,omitempty"`
	AdmissionDate string     `json:"admission_date"`
	DischargeDate string     `json:"discharge_date"`
	Diagnosis     string     `json:"diagnosis"`
	Treatment     string     `json:"treatment"`
	Medications   string     `json:"medications"`
	FollowUp      string     `json:"follow_up"`
}

// Validate checks presence and parses the dates. The discharge date must be
// strictly after the admission date; a same-day discharge is rejected.
func (r *CreateRequest) Validate() (admission, discharge time.Time, err error) {
	var errs []string
	if r.PatientID == uuid.Nil {
		errs = append(errs, "patient_id is required")
	}
	if r.DoctorID == uuid.Nil {
		errs = append(errs, "doctor_id is required")
	}
	if strings.TrimSpace(r.Diagnosis) == "" {
		errs = append(errs, "diagnosis is required")
	}
	admission, aErr := time.Parse("2006-01-02", r.AdmissionDate)
	if aErr != nil {
		errs = append(errs, "admission_date must be YYYY-MM-DD")
	}
	discharge, dErr := time.Parse("2006-01-02", r.DischargeDate)
	if dErr != nil {
		errs = append(errs, "discharge_date must be YYYY-MM-DD")
	}
	if aErr == nil && dErr == nil && !discharge.After(admission) {
		errs = append(errs, "discharge_date must be after admission_date")
	}
	if len(errs) > 0 {
		return admission, discharge, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return admission, discharge, nil
}

// UpdateRequest amends a pending discharge. Nil fields are left untouched.
type UpdateRequest struct {
	DischargeDate *string `json:"discharge_date,omitempty"`
	Diagnosis     *string `json:"diagnosis,omitempty"`
	Treatment     *string `json:"treatment,omitempty"`
	Medications   *string `json:"medications,omitempty"`
	FollowUp      *string `json:"follow_up,omitempty"`
}
