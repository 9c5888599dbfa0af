package patient

import "strings"

// Patient maps to the patients table.
type Patient struct {
	ID                int64   `db:"id" json:"id"`
	Name              string  `db:"patient_name" json:"name"`
	Age               int     `db:"age" json:"age"`
	Gender            string  `db:"gender" json:"gender,omitempty"`
	Phone             string  `db:"phone" json:"phone,omitempty"`
	Address           string  `db:"address" json:"address,omitempty"`
	BloodType         string  `db:"blood_type" json:"blood_type,omitempty"`
	EmergencyContact  string  `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone    string  `db:"emergency_phone" json:"emergency_phone,omitempty"`
	MedicalConditions string  `db:"medical_conditions" json:"medical_conditions,omitempty"`
	Allergies         string  `db:"allergies" json:"allergies,omitempty"`
	ImagePath         *string `db:"image_path" json:"image_path,omitempty"`
	RegistrationDate  string  `db:"registration_date" json:"registration_date"`
	IsActive          bool    `db:"is_active" json:"is_active"`
	CreatedAt         string  `db:"created_at" json:"created_at"`
	UpdatedAt         string  `db:"updated_at" json:"updated_at"`
}

// HasImage reports whether an image path is recorded.
func (p *Patient) HasImage() bool {
	return p.ImagePath != nil && *p.ImagePath != ""
}

// Conditions splits the comma-joined medical conditions.
func (p *Patient) Conditions() []string {
	var out []string
	for _, c := range strings.Split(p.MedicalConditions, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Gender is the enumerated form of the free-text gender column.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ParseGender maps s case-insensitively onto a Gender. Empty and
// unrecognised values fall into GenderOther.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale
	case "female":
		return GenderFemale
	default:
		return GenderOther
	}
}

// GenderCounts is the breakdown of active patients. The three buckets
// always add up to the active patient count.
type GenderCounts struct {
	Male   int `json:"male"`
	Female int `json:"female"`
	Other  int `json:"other"`
}

// Total returns the sum of the buckets.
func (g GenderCounts) Total() int { return g.Male + g.Female + g.Other }

// Statistics summarises active patients.
type Statistics struct {
	TotalActive    int `json:"total_active"`
	AddedThisMonth int `json:"added_this_month"`
	AverageAge     int `json:"average_age"`
}

// Values returns the statistics in [total, this month, average age] order.
func (s Statistics) Values() []int {
	return []int{s.TotalActive, s.AddedThisMonth, s.AverageAge}
}
