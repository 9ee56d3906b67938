package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Resource names one logical dataset fetched and cached as a unit.
type Resource string

const (
	ResourceServices  Resource = "services"
	ResourceHotels    Resource = "hotels"
	ResourceTaxis     Resource = "taxis"
	ResourceTaxiZones Resource = "taxi_zones"
	ResourcePackages  Resource = "packages"
	ResourceDirectory Resource = "directory"
)

// DefaultTTL applies to resources without an explicit freshness override.
const DefaultTTL = 15 * time.Minute

// tables maps each resource onto its Airtable table name. The base uses
// Spanish table names; this is the only place they appear.
var tables = map[Resource]string{
	ResourceServices:  "Servicios",
	ResourceHotels:    "Hoteles",
	ResourceTaxis:     "Taxis",
	ResourceTaxiZones: "ZonasTaxi",
	ResourcePackages:  "Paquetes",
	ResourceDirectory: "Directorio",
}

// Known returns the fixed resource set in stable order.
func Known() []Resource {
	return []Resource{
		ResourceServices,
		ResourceHotels,
		ResourceTaxis,
		ResourceTaxiZones,
		ResourcePackages,
		ResourceDirectory,
	}
}

// ParseResource validates a caller-supplied resource key.
func ParseResource(raw string) (Resource, error) {
	candidate := Resource(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := tables[candidate]; !ok {
		return "", fmt.Errorf("catalog: unknown resource %q", raw)
	}
	return candidate, nil
}

// Table returns the remote table backing the resource.
func (r Resource) Table() string {
	return tables[r]
}

func (r Resource) cacheKey() string {
	return "catalog:" + string(r)
}
