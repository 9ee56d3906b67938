package catalog

import (
	"github.com/guanago/guanago/internal/airtable"
)

// fieldAliases maps canonical record keys onto the field names observed in
// the Airtable base. Tables were edited by hand over time, so the same
// attribute appears under Spanish, English, and mixed-case names. All alias
// tolerance lives here; nothing downstream looks at raw field names.
var fieldAliases = map[string][]string{
	"name":        {"Nombre", "nombre", "Name", "name", "Titulo", "titulo"},
	"description": {"Descripcion", "descripcion", "Description", "Detalle"},
	"price":       {"Precio", "precio", "Price", "Tarifa", "tarifa"},
	"category":    {"Categoria", "categoria", "Category", "Tipo", "tipo"},
	"image":       {"Imagen", "imagen", "Image", "Foto", "foto"},
	"phone":       {"Telefono", "telefono", "Phone", "WhatsApp", "whatsapp"},
	"zone":        {"Zona", "zona", "Zone"},
	"active":      {"Activo", "activo", "Active"},
	"order":       {"Orden", "orden", "Order"},
}

// NormalizeRecord flattens an Airtable record into the shape the frontend
// renders: canonical keys resolved through the alias table, unknown fields
// passed through untouched, plus the record id.
func NormalizeRecord(record airtable.Record) map[string]any {
	out := make(map[string]any, len(record.Fields)+1)
	out["id"] = record.ID

	claimed := make(map[string]struct{}, len(record.Fields))
	for canonical, aliases := range fieldAliases {
		for _, alias := range aliases {
			value, ok := record.Fields[alias]
			if !ok {
				continue
			}
			out[canonical] = value
			claimed[alias] = struct{}{}
			break
		}
	}

	for key, value := range record.Fields {
		if _, ok := claimed[key]; ok {
			continue
		}
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = value
	}

	return out
}

// NormalizeRecords maps a full listing, preserving remote order.
func NormalizeRecords(records []airtable.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		out = append(out, NormalizeRecord(record))
	}
	return out
}

