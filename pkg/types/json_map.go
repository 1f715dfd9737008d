package types

// JSONMap is a free-form metadata bag persisted as jsonb.
type JSONMap map[string]any
