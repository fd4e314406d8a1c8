package handlers

import (
	"encoding/json"
	"net/http"
)

func rangeParameters() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"name":        "start_date",
			"in":          "query",
			"description": "First day of the range (YYYY-MM-DD). Defaults to the first day in the data; earlier dates are clamped",
			"required":    false,
			"schema":      map[string]string{"type": "string", "format": "date"},
		},
		{
			"name":        "end_date",
			"in":          "query",
			"description": "Last day of the range (YYYY-MM-DD). Defaults to the last day in the data; later dates are clamped",
			"required":    false,
			"schema":      map[string]string{"type": "string", "format": "date"},
		},
	}
}

func seriesParameter() map[string]interface{} {
	return map[string]interface{}{
		"name":        "series",
		"in":          "query",
		"description": "Line plotted on the daily chart",
		"required":    false,
		"schema": map[string]interface{}{
			"type":    "string",
			"enum":    []string{"casual", "registered", "all"},
			"default": "casual",
		},
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func errorResponses() map[string]interface{} {
	ref := map[string]interface{}{"$ref": "#/components/schemas/Error"}
	return map[string]interface{}{
		"400": jsonResponse("Malformed date, inverted range or unknown series", ref),
		"503": jsonResponse("Dataset not loaded", ref),
	}
}

func withOK(ok map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{"200": ok}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	category := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"code":      map[string]string{"type": "integer"},
			"label":     map[string]string{"type": "string"},
			"cnt_daily": map[string]string{"type": "number"},
			"records":   map[string]string{"type": "integer"},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Bike Renting Dashboard API",
			"description": "Daily, hourly, seasonal, weather and working-day summaries of bike rentals for a date range",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
				"Range": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"start_date": map[string]string{"type": "string", "format": "date-time"},
						"end_date":   map[string]string{"type": "string", "format": "date-time"},
					},
				},
				"Category": category,
			},
		},
		"paths": map[string]interface{}{
			"/": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Dashboard page",
					"parameters": append(rangeParameters(), seriesParameter()),
					"responses": withOK(map[string]interface{}{
						"description": "HTML dashboard",
						"content": map[string]interface{}{
							"text/html": map[string]interface{}{"schema": map[string]string{"type": "string"}},
						},
					}, errorResponses()),
				},
			},
			"/api/dashboard": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Dashboard view",
					"description": "Metrics and chart configurations for the range, as rendered by the page",
					"parameters":  append(rangeParameters(), seriesParameter()),
					"responses":   withOK(jsonResponse("Dashboard view", map[string]interface{}{"type": "object"}), errorResponses()),
				},
			},
			"/api/summaries": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "All summaries",
					"description": "The five summary tables for the range. The season table always covers every date",
					"parameters":  rangeParameters(),
					"responses": withOK(jsonResponse("Summaries", map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"range":       map[string]string{"$ref": "#/components/schemas/Range"},
							"records":     map[string]string{"type": "integer"},
							"daily":       map[string]string{"type": "array"},
							"hourly":      map[string]string{"type": "array"},
							"season":      map[string]interface{}{"type": "array", "items": category},
							"weather":     map[string]interface{}{"type": "array", "items": category},
							"holiday":     map[string]interface{}{"type": "array", "items": category},
							"total_days":  map[string]string{"type": "integer"},
							"total_rents": map[string]string{"type": "integer"},
						},
					}), errorResponses()),
				},
			},
			"/api/summaries/{kind}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "One summary",
					"parameters": append(rangeParameters(), map[string]interface{}{
						"name":     "kind",
						"in":       "path",
						"required": true,
						"schema": map[string]interface{}{
							"type": "string",
							"enum": []string{"daily", "hourly", "season", "weather", "holiday"},
						},
					}),
					"responses": withOK(jsonResponse("Summary rows", map[string]interface{}{"type": "object"}), map[string]interface{}{
						"400": errorResponses()["400"],
						"404": jsonResponse("Unknown summary kind", map[string]interface{}{"$ref": "#/components/schemas/Error"}),
						"503": errorResponses()["503"],
					}),
				},
			},
			"/api/bounds": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Data span",
					"responses": withOK(jsonResponse("First and last day in the data", map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"range":     map[string]string{"$ref": "#/components/schemas/Range"},
							"records":   map[string]string{"type": "integer"},
							"source":    map[string]string{"type": "string"},
							"loaded_at": map[string]string{"type": "string", "format": "date-time"},
						},
					}), map[string]interface{}{"503": errorResponses()["503"]}),
				},
			},
			"/api/export.xlsx": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Spreadsheet export",
					"parameters": rangeParameters(),
					"responses": withOK(map[string]interface{}{
						"description": "Workbook with one sheet per summary",
						"content": map[string]interface{}{
							"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": map[string]interface{}{
								"schema": map[string]string{"type": "string", "format": "binary"},
							},
						},
					}, errorResponses()),
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Reports the loaded dataset and, when reading from PostgreSQL, the database state",
					"responses": map[string]interface{}{
						"200": jsonResponse("Healthy", map[string]interface{}{"type": "object"}),
						"503": jsonResponse("Dataset not loaded or database unreachable", map[string]interface{}{"type": "object"}),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
