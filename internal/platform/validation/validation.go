// Package validation holds the field rules applied to patient, visit and
// medication input before it reaches storage. Every rule is a pure function
// of the raw field value.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Limits applied by the rules below.
const (
	MinAge              = 0
	MaxAge              = 150
	MinPatientNameLen   = 2
	MaxPatientNameLen   = 100
	MaxPhoneLen         = 20
	MaxAddressLen       = 200
	MinMedicalFieldLen  = 3
	MaxMedicalFieldLen  = 1000
	MaxVitalSignsLen    = 200
	MinYear, MaxYear    = 1900, 2100
	MinDoctorNameLength = 2
)

var (
	namePattern       = regexp.MustCompile(`^[a-zA-Z\s.'-]{2,50}$`)
	doctorNamePattern = regexp.MustCompile(`^(Dr\.?\s)?[a-zA-Z\s.'-]{2,50}$`)
	phonePattern      = regexp.MustCompile(`^[+]?[1-9]?[0-9]{7,15}$`)
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9+._%\-]{1,256}@[a-zA-Z0-9][a-zA-Z0-9\-]{0,64}(\.[a-zA-Z0-9][a-zA-Z0-9\-]{0,25})+$`)
	datePattern       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// Separators people type inside phone numbers. They are ignored before
	// matching so "+1-555-0123" and "(555) 012 3456" are accepted.
	phoneSeparators = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "", ".", "")
)

// Result is the outcome of a single rule.
type Result struct {
	Valid   bool
	Message string
}

var ok = Result{Valid: true}

func fail(msg string) Result { return Result{Message: msg} }

// Err converts a failed result into an *Error for field. It returns nil for
// a passing result.
func (r Result) Err(field string) error {
	if r.Valid {
		return nil
	}
	return &Error{Field: field, Reason: r.Message}
}

// Error is returned by services when input fails a rule. It never reaches
// storage.
type Error struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// First returns the first non-nil error, or nil.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// PatientName requires 2 to 100 characters of letters, spaces, periods,
// hyphens and apostrophes.
func PatientName(name string) Result {
	if name == "" {
		return fail("Patient name is required")
	}
	name = strings.TrimSpace(name)
	if len(name) < MinPatientNameLen {
		return fail(fmt.Sprintf("Name must be at least %d characters", MinPatientNameLen))
	}
	if len(name) > MaxPatientNameLen {
		return fail(fmt.Sprintf("Name must be less than %d characters", MaxPatientNameLen))
	}
	if !namePattern.MatchString(name) {
		return fail("Name can only contain letters, spaces, periods, hyphens, and apostrophes")
	}
	return ok
}

// Age parses s as an integer between MinAge and MaxAge inclusive.
func Age(s string) Result {
	if strings.TrimSpace(s) == "" {
		return fail("Age is required")
	}
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fail("Please enter a valid age")
	}
	return AgeValue(age)
}

// AgeValue applies the Age bounds to an already parsed value.
func AgeValue(age int) Result {
	if age < MinAge {
		return fail("Age cannot be negative")
	}
	if age > MaxAge {
		return fail(fmt.Sprintf("Age cannot be greater than %d", MaxAge))
	}
	return ok
}

// Phone is optional. Separators are ignored.
func Phone(phone string) Result {
	if phone == "" {
		return ok
	}
	phone = phoneSeparators.Replace(strings.TrimSpace(phone))
	if len(phone) > MaxPhoneLen {
		return fail("Phone number is too long")
	}
	if !phonePattern.MatchString(phone) {
		return fail("Please enter a valid phone number (e.g., +1-555-0123 or 5550123)")
	}
	return ok
}

// Email is optional.
func Email(email string) Result {
	if email == "" {
		return ok
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return fail("Please enter a valid email address")
	}
	return ok
}

// DoctorName accepts an optional "Dr" or "Dr." prefix followed by a name.
func DoctorName(name string) Result {
	if name == "" {
		return fail("Doctor name is required")
	}
	name = strings.TrimSpace(name)
	if len(name) < MinDoctorNameLength {
		return fail("Doctor name is too short")
	}
	if !doctorNamePattern.MatchString(name) {
		return fail("Doctor name format is invalid (e.g., Dr. Smith or Dr Smith)")
	}
	return ok
}

// MedicalField checks free text such as symptoms, diagnosis or treatment.
// label is used in the message.
func MedicalField(value, label string, required bool) Result {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return fail(label + " is required")
		}
		return ok
	}
	if len(value) < MinMedicalFieldLen {
		return fail(fmt.Sprintf("%s is too short (minimum %d characters)", label, MinMedicalFieldLen))
	}
	if len(value) > MaxMedicalFieldLen {
		return fail(fmt.Sprintf("%s is too long (maximum %d characters)", label, MaxMedicalFieldLen))
	}
	return ok
}

// Address is optional.
func Address(address string) Result {
	if len(strings.TrimSpace(address)) > MaxAddressLen {
		return fail(fmt.Sprintf("Address is too long (maximum %d characters)", MaxAddressLen))
	}
	return ok
}

// BloodType is optional and case-insensitive.
func BloodType(bt string) Result {
	bt = strings.TrimSpace(bt)
	if bt == "" {
		return ok
	}
	if !Contains(BloodTypes, strings.ToUpper(bt)) {
		return fail("Please select a valid blood type")
	}
	return ok
}

// Date requires YYYY-MM-DD with a year in [1900, 2100]. Day-of-month is only
// range checked, matching the form the edit screens accept.
func Date(date string) Result {
	date = strings.TrimSpace(date)
	if date == "" {
		return fail("Date is required")
	}
	if !datePattern.MatchString(date) {
		return fail("Invalid date format (expected YYYY-MM-DD)")
	}
	year, _ := strconv.Atoi(date[0:4])
	month, _ := strconv.Atoi(date[5:7])
	day, _ := strconv.Atoi(date[8:10])
	if year < MinYear || year > MaxYear {
		return fail(fmt.Sprintf("Year must be between %d and %d", MinYear, MaxYear))
	}
	if month < 1 || month > 12 {
		return fail("Month must be between 1 and 12")
	}
	if day < 1 || day > 31 {
		return fail("Day must be between 1 and 31")
	}
	return ok
}

// OptionalDate passes an empty value and applies Date otherwise.
func OptionalDate(date string) Result {
	if strings.TrimSpace(date) == "" {
		return ok
	}
	return Date(date)
}

// VitalSigns is optional free text.
func VitalSigns(v string) Result {
	if len(strings.TrimSpace(v)) > MaxVitalSignsLen {
		return fail("Vital signs description is too long")
	}
	return ok
}
