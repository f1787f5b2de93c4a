package handlers

import (
	"encoding/json"
	"net/http"
)

func errorResponseSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"error":   map[string]string{"type": "string"},
			"message": map[string]string{"type": "string"},
			"code":    map[string]string{"type": "integer"},
		},
	}
}

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{
			"schema": schema,
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Energy Dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Energy Dashboard API",
			"description": "Half-hourly energy consumption merged with temperature readings and flagged anomalies",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:3000", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/energy": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Get merged energy data",
					"description": "Loads the energy, weather and anomaly sources, aligns them on a canonical " +
						"timestamp and returns one record per half-hourly interval. Any source failure fails the whole request.",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Object keyed by timestamp in milliseconds since the Unix epoch",
							"headers": map[string]interface{}{
								"Cache-Control": map[string]interface{}{
									"description": "Present when a revalidation window is configured",
									"schema":      map[string]string{"type": "string"},
								},
							},
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"additionalProperties": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"consumption": map[string]interface{}{
											"type":        "number",
											"description": "Omitted when the energy source has no row for this interval",
										},
										"temperature": map[string]interface{}{
											"type":        "number",
											"description": "Omitted when the weather source has no row for this interval",
										},
										"isAnomalous": map[string]string{"type": "boolean"},
									},
									"required": []string{"isAnomalous"},
								},
								"example": map[string]interface{}{
									"1577836800000": map[string]interface{}{
										"consumption": 12.34,
										"temperature": 5.67,
										"isAnomalous": true,
									},
								},
							}),
						},
						"500": map[string]interface{}{
							"description": "A source could not be parsed",
							"content":     jsonContent(errorResponseSchema()),
						},
						"502": map[string]interface{}{
							"description": "A source could not be fetched",
							"content":     jsonContent(errorResponseSchema()),
						},
						"429": map[string]interface{}{
							"description": "Rate limit exceeded",
							"content":     jsonContent(errorResponseSchema()),
						},
					},
				},
			},
			"/api/energy/stats": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get daily statistics",
					"description": "Per-day consumption and temperature aggregates computed from the merged data",
					"parameters": []map[string]interface{}{
						{
							"name":        "from",
							"in":          "query",
							"description": "First day to include (YYYY-MM-DD)",
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "to",
							"in":          "query",
							"description": "Last day to include (YYYY-MM-DD)",
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number (default: 1)",
							"schema":      map[string]interface{}{"type": "integer", "minimum": 1},
						},
						{
							"name":        "limit",
							"in":          "query",
							"description": "Days per page (default: 31, max: 366)",
							"schema":      map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 366},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Paginated daily summaries",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"data": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"date":                    map[string]string{"type": "string", "format": "date"},
												"interval_count":          map[string]string{"type": "integer"},
												"total_consumption":       map[string]string{"type": "number"},
												"avg_consumption":         map[string]string{"type": "number"},
												"peak_consumption":        map[string]string{"type": "number"},
												"min_temperature":         map[string]string{"type": "number"},
												"max_temperature":         map[string]string{"type": "number"},
												"avg_temperature":         map[string]string{"type": "number"},
												"anomaly_count":           map[string]string{"type": "integer"},
												"valid_consumption_count": map[string]string{"type": "integer"},
												"valid_temperature_count": map[string]string{"type": "integer"},
											},
										},
									},
									"total":       map[string]string{"type": "integer"},
									"page":        map[string]string{"type": "integer"},
									"limit":       map[string]string{"type": "integer"},
									"total_pages": map[string]string{"type": "integer"},
								},
							}),
						},
						"400": map[string]interface{}{
							"description": "Invalid date parameter",
							"content":     jsonContent(errorResponseSchema()),
						},
						"502": map[string]interface{}{
							"description": "A source could not be fetched",
							"content":     jsonContent(errorResponseSchema()),
						},
					},
				},
			},
			"/": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Dashboard",
					"description": "Interactive consumption vs temperature chart with anomalies highlighted",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "HTML page",
							"content": map[string]interface{}{
								"text/html": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
						"502": map[string]interface{}{
							"description": "Error page shown instead of a partial chart",
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API is running and its source backend is reachable",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"status":    map[string]string{"type": "string"},
									"backend":   map[string]string{"type": "string"},
									"timestamp": map[string]string{"type": "string", "format": "date-time"},
								},
							}),
						},
						"503": map[string]interface{}{
							"description": "Source backend unreachable",
						},
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
