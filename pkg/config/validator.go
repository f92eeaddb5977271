package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Embedder config
	if c.Embedder.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "embedder.model",
			Message: "embedding model is required",
		})
	}

	if c.Embedder.RequestsPerMinute < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedder.requests_per_minute",
			Message: "requests_per_minute cannot be negative",
		})
	}

	if c.Embedder.BaseURL != "" {
		if _, err := url.Parse(c.Embedder.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "embedder.base_url",
				Message: "invalid embedder base URL",
			})
		}
	}

	// Validate Database config
	switch c.Database.Driver {
	case "qdrant", "pgvector", "sqlite":
	default:
		errors = append(errors, ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unknown driver: %s", c.Database.Driver),
		})
	}

	if c.Database.Driver == "pgvector" && c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "PostgreSQL connection string is required for the pgvector driver",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Dataset config
	if c.Dataset.URL != "" {
		if u, err := url.Parse(c.Dataset.URL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "dataset.url",
				Message: "invalid dataset URL",
			})
		}
	}

	if c.Dataset.TimeoutS < 1 {
		errors = append(errors, ValidationError{
			Field:   "dataset.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	// Validate UI config
	if c.UI.Field != "title" && c.UI.Field != "content" {
		errors = append(errors, ValidationError{
			Field:   "ui.field",
			Message: fmt.Sprintf("field must be \"title\" or \"content\", got %q", c.UI.Field),
		})
	}

	if c.UI.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "ui.top_k",
			Message: "top_k must be positive",
		})
	}

	return errors
}
