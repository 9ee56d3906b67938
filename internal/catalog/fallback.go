package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed fallback/*.json
var fallbackFS embed.FS

var (
	fallbackOnce sync.Once
	fallbackRaw  map[Resource][]byte
	fallbackErr  error
)

// FallbackRecords returns the bundled static dataset for a resource. The
// data is render-only: it is never written to the persistent store, so a
// later successful fetch is never shadowed by it. Each call decodes a fresh
// copy, so callers may mutate the result freely.
func FallbackRecords(resource Resource) ([]map[string]any, error) {
	fallbackOnce.Do(loadFallback)
	if fallbackErr != nil {
		return nil, fallbackErr
	}

	raw, ok := fallbackRaw[resource]
	if !ok {
		return nil, fmt.Errorf("catalog: no fallback dataset for %q", resource)
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("catalog: parse fallback for %s: %w", resource, err)
	}
	return records, nil
}

func loadFallback() {
	data := make(map[Resource][]byte, len(tables))
	for _, resource := range Known() {
		raw, err := fallbackFS.ReadFile("fallback/" + string(resource) + ".json")
		if err != nil {
			fallbackErr = fmt.Errorf("catalog: read fallback for %s: %w", resource, err)
			return
		}

		var records []map[string]any
		if err := json.Unmarshal(raw, &records); err != nil {
			fallbackErr = fmt.Errorf("catalog: parse fallback for %s: %w", resource, err)
			return
		}
		data[resource] = raw
	}
	fallbackRaw = data
}
