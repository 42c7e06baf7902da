package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles understood by the system.
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RoleNurse   = "nurse"
	RolePatient = "patient"
	RoleStaff   = "staff"
)

var validRoles = map[string]bool{
	RoleAdmin: true, RoleDoctor: true, RoleNurse: true,
	RolePatient: true, RoleStaff: true,
}

// ValidRole reports whether role is one the system understands.
func ValidRole(role string) bool { return validRoles[role] }

// OperationTypes allowed for patients.
var OperationTypes = []string{"surgical", "medical", "operation"}

// Specialities is the catalogue offered to doctors and technical staff.
var Specialities = []string{
	"General Medicine", "General Surgery", "Emergency Medicine",
	"Obstetrics and Gynecology", "Pediatrics", "Anesthesiology",
	"Radiology", "Pathology", "Orthopedics", "Cardiology", "Dermatology",
	"ENT (Otolaryngology)", "Ophthalmology", "Psychiatry", "Neurology",
	"Urology", "Nephrology", "Pulmonology", "Gastroenterology",
	"Endocrinology", "Oncology", "Hematology", "Rheumatology",
	"Plastic Surgery", "Cardiothoracic Surgery", "Neurosurgery",
	"Vascular Surgery", "Infectious Disease", "Radiologic Technologist",
	"MRI Technologist", "CT Technologist", "Ultrasound Sonographer",
	"X-ray Technician", "ECG Technician", "EEG Technician", "Other",
}

// User maps to the users table. PasswordHash and the reset token fields
// never leave the server.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Username         string     `json:"username"`
	PasswordHash     string     `json:"-"`
	Role             string     `json:"role"`
	Name             string     `json:"name"`
	Birthday         time.Time  `json:"birthday"`
	IDCardNumber     string     `json:"id_card_number"`
	Address          string     `json:"address"`
	PhoneNumber      string     `json:"phone_number"`
	Email            string     `json:"email"`
	Speciality       *string    `json:"speciality,omitempty"`
	MedicalStatus    *string    `json:"medical_status,omitempty"`
	OperationType    *string    `json:"operation_type,omitempty"`
	IsActive         bool       `json:"is_active"`
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern  = regexp.MustCompile(`^0[0-9]{9}$`)
	idCardPattern = regexp.MustCompile(`^[0-9]{9}[vVxX]$`)
)

// ValidEmail reports whether the address is well-formed.
func ValidEmail(email string) bool { return emailPattern.MatchString(email) }

// ValidPhone reports whether the number is 10 digits starting with 0.
func ValidPhone(phone string) bool { return phonePattern.MatchString(phone) }

// ValidIDCard reports whether the number is 9 digits followed by V or X.
func ValidIDCard(id string) bool { return idCardPattern.MatchString(id) }

// ValidSpeciality reports whether s appears in the catalogue.
func ValidSpeciality(s string) bool {
	for _, known := range Specialities {
		if known == s {
			return true
		}
	}
	return false
}

// RegisterRequest carries the fields needed to create a user.
type RegisterRequest struct {
	Username      string  `json:"username"`
	Password      string  `json:"password"`
	Role          string  `json:"role"`
	Name          string  `json:"name"`
	Birthday      string  `json:"birthday"`
	IDCardNumber  string  `json:"id_card_number"`
	Address       string  `json:"address"`
	PhoneNumber   string  `json:"phone_number"`
	Email         string  `json:"email"`
	Speciality    *string `json:"speciality,omitempty"`
	MedicalStatus *string `json:"medical_status,omitempty"`
	OperationType *string `json:"operation_type,omitempty"`
}

// Validate checks the registration payload against the role-specific rules.
// It collects every violation so the client sees them all at once.
func (r *RegisterRequest) Validate() error {
	var errs []string

	required := []struct{ name, value string }{
		{"username", r.Username}, {"password", r.Password}, {"role", r.Role},
		{"name", r.Name}, {"birthday", r.Birthday},
		{"id_card_number", r.IDCardNumber}, {"address", r.Address},
		{"phone_number", r.PhoneNumber}, {"email", r.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, f.name+" is required")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	if !ValidRole(r.Role) {
		errs = append(errs, "invalid role")
	}
	if !ValidEmail(r.Email) {
		errs = append(errs, "invalid email format")
	}
	if !ValidPhone(r.PhoneNumber) {
		errs = append(errs, "phone number must be 10 digits starting with 0")
	}
	if !ValidIDCard(r.IDCardNumber) {
		errs = append(errs, "id card number must be 9 digits followed by V or X")
	}
	if _, err := time.Parse("2006-01-02", r.Birthday); err != nil {
		errs = append(errs, "birthday must be YYYY-MM-DD")
	}

	switch r.Role {
	case RolePatient:
		if r.MedicalStatus == nil || *r.MedicalStatus == "" {
			errs = append(errs, "medical_status is required for patients")
		}
		if r.OperationType == nil || *r.OperationType == "" {
			errs = append(errs, "operation_type is required for patients")
		} else if !validOperationType(*r.OperationType) {
			errs = append(errs, "operation_type must be one of: "+strings.Join(OperationTypes, ", "))
		}
	case RoleDoctor, RoleStaff:
		if r.Speciality == nil || *r.Speciality == "" {
			errs = append(errs, "speciality is required for "+r.Role)
		} else if !ValidSpeciality(*r.Speciality) {
			errs = append(errs, "unknown speciality")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validOperationType(op string) bool {
	for _, t := range OperationTypes {
		if t == op {
			return true
		}
	}
	return false
}

// UpdateUserRequest carries a partial user update. Nil fields are left
// untouched. Role and is_active changes go through dedicated endpoints.
type UpdateUserRequest struct {
	Name          *string `json:"name,omitempty"`
	Address       *string `json:"address,omitempty"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	Email         *string `json:"email,omitempty"`
	Speciality    *string `json:"speciality,omitempty"`
	MedicalStatus *string `json:"medical_status,omitempty"`
	OperationType *string `json:"operation_type,omitempty"`
}

// Validate checks the fields that are present.
func (r *UpdateUserRequest) Validate() error {
	var errs []string
	if r.Email != nil && !ValidEmail(*r.Email) {
		errs = append(errs, "invalid email format")
	}
	if r.PhoneNumber != nil && !ValidPhone(*r.PhoneNumber) {
		errs = append(errs, "phone number must be 10 digits starting with 0")
	}
	if r.Speciality != nil && *r.Speciality != "" && !ValidSpeciality(*r.Speciality) {
		errs = append(errs, "unknown speciality")
	}
	if r.OperationType != nil && *r.OperationType != "" && !validOperationType(*r.OperationType) {
		errs = append(errs, "operation_type must be one of: "+strings.Join(OperationTypes, ", "))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the response to login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}
