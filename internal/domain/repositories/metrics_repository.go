package repositories

import "github.com/rios0rios0/autopolicy/internal/domain/entities"

// MetricsRepository records the outcome of evaluation passes.
type MetricsRepository interface {
	ObserveTick(result entities.TickResult)
}
