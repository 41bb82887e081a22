/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

TYPES:
  Populations:
    PopulationDTO

  Statistics:
    StatisticsResponse (wraps report.Summary)

  Tables:
    TableDTO, TablePreviewDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - report/report.go: Summary type
*/
package api

import (
	"time"

	"github.com/warp/copd-rates/copd"
	"github.com/warp/copd-rates/generic"
	"github.com/warp/copd-rates/report"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// PopulationDTO represents a population-of-interest in API responses.
type PopulationDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Location        string `json:"location"`
	MortalityColumn string `json:"mortality_column"`
}

// StatisticsResponse is the comparison for every configured population.
type StatisticsResponse struct {
	ReferenceYear int              `json:"reference_year"`
	Results       []report.Summary `json:"results"`
}

// TableDTO describes a stored table without its rows.
type TableDTO struct {
	Name       string     `json:"name"`
	Columns    []string   `json:"columns,omitempty"`
	Rows       int        `json:"rows"`
	Source     string     `json:"source,omitempty"`
	ImportedAt *time.Time `json:"imported_at,omitempty"`
}

// TablePreviewDTO is a table header plus its first rows.
type TablePreviewDTO struct {
	TableDTO
	Preview [][]string `json:"preview"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPopulationDTO(p copd.Population) PopulationDTO {
	return PopulationDTO{
		ID:              string(p.ID),
		Name:            p.Name,
		Location:        p.Location,
		MortalityColumn: p.MortalityColumn,
	}
}

func toTableDTO(t *generic.Table) TableDTO {
	return TableDTO{
		Name:    t.Name,
		Columns: t.Columns,
		Rows:    t.Len(),
	}
}
