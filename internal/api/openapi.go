package api

import (
	"fmt"
	"net/http"
)

type route struct {
	method  string
	path    string
	summary string
	body    string
	codes   []int
}

var routes = []route{
	{"get", "/health", "Health check", "", []int{200}},
	{"get", "/indicators", "List indicators and default parameters", "", []int{200}},
	{"post", "/indicators/{name}", "Compute an indicator over inline series or a stored dataset", "ComputeRequest", []int{200, 400, 404, 422}},
	{"post", "/batch", "Compute several indicators concurrently", "BatchRequest", []int{200, 400, 404, 422}},
	{"get", "/datasets", "List stored datasets", "", []int{200}},
	{"post", "/datasets", "Store a dataset", "Dataset", []int{201, 400}},
	{"post", "/datasets/import", "Import klines from an exchange as a dataset", "ImportRequest", []int{201, 400}},
	{"get", "/datasets/{name}", "Get a dataset with its bars", "", []int{200, 404}},
	{"delete", "/datasets/{name}", "Delete a dataset", "", []int{200, 404}},
	{"get", "/computations", "Recent computation log", "", []int{200}},
	{"get", "/scripts", "List stored scripts", "", []int{200}},
	{"post", "/scripts/run", "Run a Starlark script", "ScriptRequest", []int{200, 400}},
}

var series = map[string]interface{}{
	"type":  "array",
	"items": map[string]interface{}{"type": "number", "nullable": true},
}

func (a *APIActor) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	paths := map[string]map[string]interface{}{}
	for _, rt := range routes {
		responses := map[string]interface{}{}
		for _, code := range rt.codes {
			responses[fmt.Sprint(code)] = map[string]interface{}{"description": http.StatusText(code)}
		}

		op := map[string]interface{}{
			"summary":   rt.summary,
			"responses": responses,
		}
		if rt.body != "" {
			op["requestBody"] = map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]string{"$ref": "#/components/schemas/" + rt.body},
					},
				},
			}
		}

		if paths[rt.path] == nil {
			paths[rt.path] = map[string]interface{}{}
		}
		paths[rt.path][rt.method] = op
	}

	params := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"time_period":     map[string]string{"type": "integer"},
			"multiplier":      map[string]string{"type": "number"},
			"fast":            map[string]string{"type": "integer"},
			"slow":            map[string]string{"type": "integer"},
			"seed_with_price": map[string]string{"type": "boolean"},
			"fast_limit":      map[string]string{"type": "number"},
			"slow_limit":      map[string]string{"type": "number"},
			"periods":         map[string]interface{}{"type": "array", "items": map[string]string{"type": "integer"}},
			"min_period":      map[string]string{"type": "integer"},
			"max_period":      map[string]string{"type": "integer"},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Overlap Studies API",
			"version":     Version,
			"description": "Overlap studies indicators over inline series and stored datasets",
		},
		"servers": []map[string]interface{}{
			{
				"url":         fmt.Sprintf("http://localhost:%d/api/v1", a.config.API.Port),
				"description": "Local server",
			},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Params": params,
				"ComputeRequest": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"dataset": map[string]string{"type": "string"},
						"high":    series,
						"low":     series,
						"close":   series,
						"params":  map[string]string{"$ref": "#/components/schemas/Params"},
					},
				},
				"BatchRequest": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"requests": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"$ref": "#/components/schemas/ComputeRequest"},
						},
					},
				},
				"Dataset": map[string]interface{}{
					"type":     "object",
					"required": []string{"name", "candles"},
					"properties": map[string]interface{}{
						"name":     map[string]string{"type": "string"},
						"source":   map[string]string{"type": "string"},
						"symbol":   map[string]string{"type": "string"},
						"interval": map[string]string{"type": "string"},
						"candles":  map[string]interface{}{"type": "array", "items": map[string]string{"type": "object"}},
					},
				},
				"ImportRequest": map[string]interface{}{
					"type":     "object",
					"required": []string{"exchange", "symbol", "interval"},
					"properties": map[string]interface{}{
						"exchange": map[string]string{"type": "string"},
						"symbol":   map[string]string{"type": "string"},
						"interval": map[string]string{"type": "string"},
						"limit":    map[string]string{"type": "integer"},
						"name":     map[string]string{"type": "string"},
					},
				},
				"ScriptRequest": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name":    map[string]string{"type": "string"},
						"source":  map[string]string{"type": "string"},
						"dataset": map[string]string{"type": "string"},
						"close":   series,
						"config":  map[string]string{"type": "object"},
					},
				},
			},
		},
	}

	a.writeJSON(w, spec)
}
