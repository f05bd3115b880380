package storage

import "strings"

// Backend names accepted by Open.
const (
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
	BackendMemory     = "memory"
)

// ResolveBackend picks a backend when none is named explicitly:
// postgres if a postgres DSN is set, then clickhouse, then memory.
func ResolveBackend(backend, postgresDSN, clickhouseDSN string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend != "" {
		return backend
	}
	switch {
	case postgresDSN != "":
		return BackendPostgres
	case clickhouseDSN != "":
		return BackendClickhouse
	default:
		return BackendMemory
	}
}
