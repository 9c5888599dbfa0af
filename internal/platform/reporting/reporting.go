// Package reporting evaluates a fixed set of aggregate SQL measures over the
// patient store.
package reporting

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

// Parameter is a named query parameter bound to every ? of the measure SQL
// in declaration order.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     string `json:"default"`
}

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	SQL         string      `json:"sql"`
	Parameters  []Parameter `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string            `json:"measure_id"`
	MeasureName string            `json:"measure_name"`
	GeneratedAt time.Time         `json:"generated_at"`
	Results     []map[string]any  `json:"results"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

var sinceParam = Parameter{
	Name:        "since",
	Description: "Only count visits on or after this date (YYYY-MM-DD)",
	Default:     "1900-01-01",
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "patient-count-by-gender",
		Name:        "Patients by Gender",
		Description: "Active patients grouped into Male, Female and Other",
		SQL: `SELECT CASE LOWER(TRIM(COALESCE(gender, '')))
				WHEN 'male' THEN 'Male' WHEN 'female' THEN 'Female' ELSE 'Other' END AS gender,
			COUNT(*) AS total
			FROM patients WHERE is_active = 1
			GROUP BY 1 ORDER BY total DESC, gender`,
	},
	{
		ID:          "visits-by-specialty",
		Name:        "Visits by Specialty",
		Description: "Medical records of active patients grouped by doctor specialty",
		SQL: `SELECT COALESCE(NULLIF(mr.doctor_specialty, ''), 'Unspecified') AS specialty, COUNT(*) AS total
			FROM medical_records mr JOIN patients p ON p.id = mr.patient_id
			WHERE p.is_active = 1 AND mr.visit_date >= ?
			GROUP BY 1 ORDER BY total DESC, specialty`,
		Parameters: []Parameter{sinceParam},
	},
	{
		ID:          "visits-by-type",
		Name:        "Visits by Type",
		Description: "Medical records of active patients grouped by visit type",
		SQL: `SELECT COALESCE(NULLIF(mr.visit_type, ''), 'Unspecified') AS visit_type, COUNT(*) AS total
			FROM medical_records mr JOIN patients p ON p.id = mr.patient_id
			WHERE p.is_active = 1 AND mr.visit_date >= ?
			GROUP BY 1 ORDER BY total DESC, visit_type`,
		Parameters: []Parameter{sinceParam},
	},
	{
		ID:          "active-medications-by-frequency",
		Name:        "Active Medications by Frequency",
		Description: "Active medications of active patients grouped by dosing frequency",
		SQL: `SELECT COALESCE(NULLIF(m.frequency, ''), 'Unspecified') AS frequency, COUNT(*) AS total
			FROM medications m JOIN patients p ON p.id = m.patient_id
			WHERE m.is_active = 1 AND p.is_active = 1
			GROUP BY 1 ORDER BY total DESC, frequency`,
	},
	{
		ID:          "blood-type-distribution",
		Name:        "Blood Type Distribution",
		Description: "Active patients grouped by blood type",
		SQL: `SELECT COALESCE(NULLIF(blood_type, ''), 'Unknown') AS blood_type, COUNT(*) AS total
			FROM patients WHERE is_active = 1
			GROUP BY 1 ORDER BY total DESC, blood_type`,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Evaluator runs measures against the store.
type Evaluator struct {
	eng *db.Engine
}

func NewEvaluator(eng *db.Engine) *Evaluator {
	return &Evaluator{eng: eng}
}

// Evaluate binds params (falling back to each parameter's default) and
// runs the measure. Date parameters are validated before querying.
func (ev *Evaluator) Evaluate(ctx context.Context, m *MeasureDefinition, params map[string]string) (*MeasureReport, error) {
	bound := make(map[string]string, len(m.Parameters))
	args := make([]any, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		v, ok := params[p.Name]
		if !ok || v == "" {
			v = p.Default
		}
		if err := validation.Date(v).Err(p.Name); err != nil {
			return nil, err
		}
		bound[p.Name] = v
		args = append(args, v)
	}

	results, err := ev.query(ctx, m.ID, m.SQL, args...)
	if err != nil {
		return nil, err
	}
	return &MeasureReport{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: ev.eng.Now(),
		Results:     results,
		Parameters:  bound,
	}, nil
}

// query returns each row as a column-name map. Text comes back as string.
func (ev *Evaluator) query(ctx context.Context, id, sql string, args ...any) ([]map[string]any, error) {
	op := "evaluate measure " + id
	rows, err := ev.eng.Conn(ctx).QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, ev.eng.Fault(ctx, op, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, ev.eng.Fault(ctx, op, err)
	}
	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, ev.eng.Fault(ctx, op, err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ev.eng.Fault(ctx, op, err)
	}
	return results, nil
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	ev *Evaluator
}

func NewHandler(ev *Evaluator) *Handler {
	return &Handler{ev: ev}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	m := FindMeasure(c.Param("id"))
	if m == nil {
		return echo.NewHTTPError(http.StatusNotFound, apierror.Body{Error: "measure not found"})
	}
	params := map[string]string{}
	for _, p := range m.Parameters {
		if v := c.QueryParam(p.Name); v != "" {
			params[p.Name] = v
		}
	}
	report, err := h.ev.Evaluate(c.Request().Context(), m, params)
	if err != nil {
		return apierror.From(err, "measure")
	}
	return c.JSON(http.StatusOK, report)
}
