// Package sandbox generates reproducible synthetic patients, visits and
// medications for demos and volume testing.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/apierror"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// MaxPatients caps a single seed run.
const MaxPatients = 10000

// SeedConfig controls the volume and shape of generated synthetic data.
type SeedConfig struct {
	PatientCount          int   `json:"patient_count"`
	VisitsPerPatient      int   `json:"visits_per_patient"`
	MedicationsPerPatient int   `json:"medications_per_patient"`
	Seed                  int64 `json:"seed"`
}

// DefaultSeedConfig returns a SeedConfig with sensible defaults.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:          100,
		VisitsPerPatient:      3,
		MedicationsPerPatient: 2,
	}
}

func (c SeedConfig) validate() error {
	switch {
	case c.PatientCount < 1 || c.PatientCount > MaxPatients:
		return &validation.Error{Field: "patient_count", Reason: fmt.Sprintf("Patient count must be between 1 and %d", MaxPatients)}
	case c.VisitsPerPatient < 0:
		return &validation.Error{Field: "visits_per_patient", Reason: "Visits per patient cannot be negative"}
	case c.MedicationsPerPatient < 0:
		return &validation.Error{Field: "medications_per_patient", Reason: "Medications per patient cannot be negative"}
	}
	return nil
}

// SeedResult summarizes the output of a seed operation.
type SeedResult struct {
	Patients       int           `json:"patients"`
	MedicalRecords int           `json:"medical_records"`
	Medications    int           `json:"medications"`
	Seed           int64         `json:"seed"`
	Duration       time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Value pools
// ---------------------------------------------------------------------------

type drug struct {
	Name, Generic, Dosage string
}

var (
	firstNamesMale = []string{
		"Aaron", "Caleb", "Dominic", "Elias", "Felix", "Gavin", "Hugo",
		"Isaac", "Julian", "Kevin", "Leon", "Marcus", "Nolan", "Oscar",
		"Peter", "Quentin", "Rafael", "Simon", "Tobias", "Victor",
	}
	firstNamesFemale = []string{
		"Alice", "Bianca", "Clara", "Diana", "Eleanor", "Fiona", "Grace",
		"Hannah", "Irene", "Julia", "Laura", "Maya", "Nora", "Olivia",
		"Paula", "Rosa", "Sofia", "Teresa", "Vera", "Wendy",
	}
	lastNames = []string{
		"Adams", "Baker", "Carter", "Dixon", "Ellis", "Fisher", "Gray",
		"Hayes", "Irwin", "Jensen", "Keller", "Lambert", "Morgan", "Novak",
		"Owens", "Parker", "Quinn", "Reed", "Sutton", "Turner", "Vaughn",
		"Walsh", "Young",
	}

	streets = []string{
		"12 Harbor Rd", "48 Mill Ln", "305 Lakeview Dr", "77 Orchard St",
		"910 Summit Ave", "5 Quarry Ct", "263 Willow Pl", "181 Station Rd",
	}
	cities = []string{
		"Ashford", "Brookfield", "Crestwood", "Dunmore", "Eastport",
		"Glenwood", "Hollis", "Kingsbury", "Millbrook", "Westfield",
	}

	conditions = []string{
		"Type 2 diabetes", "Hypertension", "Asthma", "Hyperlipidemia",
		"Migraine", "Hypothyroidism", "GERD", "Allergic rhinitis",
		"Osteoarthritis", "Depression", "Insomnia", "Vitamin D deficiency",
	}
	allergies = []string{
		"Penicillin", "Ibuprofen", "Aspirin", "Sulfonamides", "Latex",
		"Peanuts", "Shellfish", "Codeine", "Eggs", "Bee venom",
	}

	symptoms = []string{
		"Headache and nausea", "Persistent cough", "Shortness of breath",
		"Lower back pain", "Fatigue and dizziness", "Chest tightness",
		"Frequent urination and thirst", "Joint pain and stiffness",
		"Sore throat and fever", "Abdominal pain", "Skin rash", "Trouble sleeping",
	}
	diagnoses = []string{
		"Migraine", "Acute bronchitis", "Asthma exacerbation", "Lumbar strain",
		"Iron deficiency anemia", "Gastro-esophageal reflux", "Diabetes follow-up",
		"Osteoarthritis flare", "Streptococcal pharyngitis", "Irritable bowel syndrome",
		"Contact dermatitis", "Primary insomnia",
	}
	treatments = []string{
		"Prescribed pain medication and rest", "Prescribed inhaler and follow-up",
		"Physical therapy twice weekly", "Dietary changes and iron supplements",
		"Adjusted medication dosage", "Course of antibiotics",
		"Topical corticosteroid cream", "Sleep hygiene counselling",
	}

	drugs = []drug{
		{"Metformin", "Glucophage", "500mg"},
		{"Lisinopril", "Zestril", "10mg"},
		{"Atorvastatin", "Lipitor", "20mg"},
		{"Omeprazole", "Prilosec", "20mg"},
		{"Amoxicillin", "Amoxil", "500mg"},
		{"Levothyroxine", "Synthroid", "50mcg"},
		{"Amlodipine", "Norvasc", "5mg"},
		{"Sertraline", "Zoloft", "50mg"},
		{"Albuterol", "ProAir", "90mcg"},
		{"Losartan", "Cozaar", "50mg"},
		{"Gabapentin", "Neurontin", "300mg"},
		{"Montelukast", "Singulair", "10mg"},
	}
	pharmacies = []string{
		"Main Street Pharmacy", "Corner Drugs", "HealthPlus Pharmacy",
		"Riverside Apothecary", "CarePoint Pharmacy",
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic synthetic rows. Dates are relative
// to today so the generated data lands in the store's date windows.
type DataGenerator struct {
	rng   *rand.Rand
	today time.Time
}

// NewDataGenerator returns a generator seeded for reproducibility.
func NewDataGenerator(seed int64, today time.Time) *DataGenerator {
	return &DataGenerator{
		rng:   rand.New(rand.NewSource(seed)),
		today: today,
	}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

// dayOffset formats today shifted by between lo and hi days inclusive.
func (g *DataGenerator) dayOffset(lo, hi int) string {
	n := lo + g.rng.Intn(hi-lo+1)
	return g.today.AddDate(0, 0, n).Format(db.DateLayout)
}

func (g *DataGenerator) phone() string {
	return fmt.Sprintf("+1-555-%04d", g.rng.Intn(10000))
}

func (g *DataGenerator) doctor() string {
	if g.rng.Intn(2) == 0 {
		return "Dr. " + g.pick(firstNamesMale) + " " + g.pick(lastNames)
	}
	return "Dr. " + g.pick(firstNamesFemale) + " " + g.pick(lastNames)
}

// some joins up to max distinct picks from pool.
func (g *DataGenerator) some(pool []string, max int) string {
	n := g.rng.Intn(max + 1)
	seen := map[string]bool{}
	var out []string
	for range n {
		v := g.pick(pool)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return strings.Join(out, ", ")
}

// GeneratePatient produces an active patient registered within the last year.
func (g *DataGenerator) GeneratePatient() *patient.Patient {
	var first, gender string
	switch r := g.rng.Intn(20); {
	case r < 10:
		first, gender = g.pick(firstNamesMale), "Male"
	case r < 19:
		first, gender = g.pick(firstNamesFemale), "Female"
	default:
		first, gender = g.pick(firstNamesFemale), "Other"
	}
	last := g.pick(lastNames)
	return &patient.Patient{
		Name:              first + " " + last,
		Age:               1 + g.rng.Intn(95),
		Gender:            gender,
		Phone:             g.phone(),
		Address:           g.pick(streets) + ", " + g.pick(cities),
		BloodType:         g.pick(validation.BloodTypes),
		EmergencyContact:  g.pick(firstNamesFemale) + " " + last,
		EmergencyPhone:    g.phone(),
		MedicalConditions: g.some(conditions, 2),
		Allergies:         g.some(allergies, 2),
		RegistrationDate:  g.dayOffset(-365, 0),
	}
}

// GenerateMedicalRecord produces a visit in the last year; about a third
// carry a follow-up within the next two months.
func (g *DataGenerator) GenerateMedicalRecord(patientID int64) *medicalrecord.MedicalRecord {
	r := &medicalrecord.MedicalRecord{
		PatientID:       patientID,
		VisitDate:       g.dayOffset(-365, 0),
		VisitType:       g.pick(validation.VisitTypes),
		Symptoms:        g.pick(symptoms),
		Diagnosis:       g.pick(diagnoses),
		Treatment:       g.pick(treatments),
		DoctorName:      g.doctor(),
		DoctorSpecialty: g.pick(validation.DoctorSpecialties),
		VitalSigns: fmt.Sprintf("BP %d/%d, HR %d, Temp %.1fF",
			100+g.rng.Intn(50), 60+g.rng.Intn(30), 55+g.rng.Intn(50), 97.0+g.rng.Float64()*3),
	}
	if g.rng.Intn(3) == 0 {
		f := g.dayOffset(1, 60)
		r.FollowUpDate = &f
	}
	return r
}

// GenerateMedication produces an active prescription started in the last
// six months; half of them end within the next quarter.
func (g *DataGenerator) GenerateMedication(patientID int64) *medication.Medication {
	d := drugs[g.rng.Intn(len(drugs))]
	m := &medication.Medication{
		PatientID:        patientID,
		Name:             d.Name,
		GenericName:      d.Generic,
		Dosage:           d.Dosage,
		Frequency:        g.pick(validation.MedicationFrequencies),
		StartDate:        g.dayOffset(-180, 0),
		PrescribedBy:     g.doctor(),
		Instructions:     "Take as directed",
		RefillsRemaining: g.rng.Intn(6),
		PharmacyName:     g.pick(pharmacies),
	}
	if g.rng.Intn(2) == 0 {
		e := g.dayOffset(0, 90)
		m.EndDate = &e
	}
	return m
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Store runs the seed transaction and supplies today's date.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Now() time.Time
}

type PatientWriter interface {
	Insert(ctx context.Context, p *patient.Patient) (int64, error)
}

type RecordWriter interface {
	Insert(ctx context.Context, r *medicalrecord.MedicalRecord) (int64, error)
}

type MedicationWriter interface {
	Insert(ctx context.Context, m *medication.Medication) (int64, error)
}

// Seeder writes generated rows through the repositories.
type Seeder struct {
	store       Store
	patients    PatientWriter
	records     RecordWriter
	medications MedicationWriter
}

func NewSeeder(store Store, patients PatientWriter, records RecordWriter, medications MedicationWriter) *Seeder {
	return &Seeder{store: store, patients: patients, records: records, medications: medications}
}

// Generate inserts the configured volume in one transaction. A zero seed
// picks a time-based one, reported back in the result.
func (s *Seeder) Generate(ctx context.Context, config SeedConfig) (*SeedResult, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	start := time.Now()
	g := NewDataGenerator(config.Seed, s.store.Now())
	result := &SeedResult{Seed: config.Seed}

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		for range config.PatientCount {
			p := g.GeneratePatient()
			id, err := s.patients.Insert(ctx, p)
			if err != nil {
				return fmt.Errorf("insert synthetic patient: %w", err)
			}
			result.Patients++

			for range config.VisitsPerPatient {
				if _, err := s.records.Insert(ctx, g.GenerateMedicalRecord(id)); err != nil {
					return fmt.Errorf("insert synthetic medical record: %w", err)
				}
				result.MedicalRecords++
			}
			for range config.MedicationsPerPatient {
				if _, err := s.medications.Insert(ctx, g.GenerateMedication(id)); err != nil {
					return fmt.Errorf("insert synthetic medication: %w", err)
				}
				result.Medications++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	log.Info().
		Int("patients", result.Patients).
		Int("medical_records", result.MedicalRecords).
		Int("medications", result.Medications).
		Int64("seed", result.Seed).
		Dur("duration", result.Duration).
		Msg("sandbox data generated")
	return result, nil
}

// ---------------------------------------------------------------------------
// SeedHandler
// ---------------------------------------------------------------------------

// SeedHandler exposes the seeder over HTTP. Only mounted in development.
type SeedHandler struct {
	seeder *Seeder
	mu     sync.Mutex
}

func NewSeedHandler(seeder *Seeder) *SeedHandler {
	return &SeedHandler{seeder: seeder}
}

func (h *SeedHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sandbox/seed", h.handleSeed)
}

func (h *SeedHandler) handleSeed(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cfg := DefaultSeedConfig()
	cfg.PatientCount = 10
	if err := c.Bind(&cfg); err != nil {
		return apierror.BadRequest(err.Error())
	}
	result, err := h.seeder.Generate(c.Request().Context(), cfg)
	if err != nil {
		return apierror.From(err, "sandbox")
	}
	return c.JSON(http.StatusCreated, result)
}
