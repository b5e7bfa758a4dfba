// Package openapi describes the registered HTTP routes as an OpenAPI 3.0
// document.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Generator builds the document from the router's route table at request
// time, so it always matches what is actually served.
type Generator struct {
	routes  func() []*echo.Route
	version string
	baseURL string
}

func NewGenerator(routes func() []*echo.Route, version, baseURL string) *Generator {
	return &Generator{routes: routes, version: version, baseURL: baseURL}
}

// Schema names by first path segment under /api.
var resourceSchemas = map[string]string{
	"departments":       "Department",
	"doctors":           "Doctor",
	"appointments":      "Appointment",
	"appointments-list": "Appointment",
}

var documentedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// GenerateSpec produces the OpenAPI document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	routes := g.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	paths := make(map[string]interface{})
	for _, r := range routes {
		if !documentedMethods[r.Method] || strings.Contains(r.Path, "*") {
			continue
		}
		path, params := openAPIPath(r.Path)
		item, ok := paths[path].(map[string]interface{})
		if !ok {
			item = make(map[string]interface{})
			paths[path] = item
		}
		item[strings.ToLower(r.Method)] = g.buildOperation(r.Method, r.Path, params)
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Clinic Appointment API",
			"version":     g.version,
			"description": "Departments, doctors and appointment booking",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": componentSchemas(),
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
		},
	}
}

// openAPIPath rewrites echo's :param segments as {param}.
func openAPIPath(echoPath string) (string, []string) {
	segs := strings.Split(echoPath, "/")
	var params []string
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			params = append(params, s[1:])
			segs[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segs, "/"), params
}

func resourceOf(echoPath string) string {
	rest, ok := strings.CutPrefix(echoPath, "/api/")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(rest, "/")
	return resourceSchemas[first]
}

func (g *Generator) buildOperation(method, echoPath string, params []string) map[string]interface{} {
	resource := resourceOf(echoPath)
	op := map[string]interface{}{
		"operationId": operationID(method, echoPath),
		"security":    []map[string][]string{{}, {"bearerAuth": {}}},
	}
	if resource != "" {
		op["tags"] = []string{resource}
	}

	var parameters []map[string]interface{}
	for _, p := range params {
		parameters = append(parameters, map[string]interface{}{
			"name":     p,
			"in":       "path",
			"required": true,
			"schema":   map[string]string{"type": "string", "format": "uuid"},
		})
	}

	responses := map[string]interface{}{}
	switch {
	case resource == "":
		responses["200"] = map[string]interface{}{"description": "OK"}
	case method == http.MethodGet && len(params) == 0:
		parameters = append(parameters, queryParam("limit", "integer"), queryParam("offset", "integer"))
		responses["200"] = jsonResponse("Paginated list", "#/components/schemas/ListResponse")
	case method == http.MethodGet:
		responses["200"] = jsonResponse(resource, "#/components/schemas/"+resource)
		responses["404"] = jsonResponse("Not found", "#/components/schemas/Error")
	case method == http.MethodPost, method == http.MethodPut:
		op["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				echo.MIMEApplicationJSON: map[string]interface{}{
					"schema": map[string]string{"$ref": "#/components/schemas/" + resource},
				},
			},
		}
		code := "200"
		if method == http.MethodPost {
			code = "201"
		}
		responses[code] = jsonResponse(resource, "#/components/schemas/"+resource)
		responses["400"] = jsonResponse("Invalid input or booking rejected", "#/components/schemas/Error")
	case method == http.MethodDelete:
		responses["204"] = map[string]interface{}{"description": "Deleted"}
		responses["404"] = jsonResponse("Not found", "#/components/schemas/Error")
		responses["409"] = jsonResponse("Referenced by appointments", "#/components/schemas/Error")
	}
	if len(parameters) > 0 {
		op["parameters"] = parameters
	}
	op["responses"] = responses
	return op
}

func operationID(method, echoPath string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.FieldsFunc(echoPath, func(r rune) bool { return r == '/' || r == '-' }) {
		if s == "api" {
			continue
		}
		s = strings.TrimPrefix(s, ":")
		b.WriteString(strings.ToUpper(s[:1]) + s[1:])
	}
	return b.String()
}

func queryParam(name, typ string) map[string]interface{} {
	return map[string]interface{}{
		"name":   name,
		"in":     "query",
		"schema": map[string]string{"type": typ},
	}
}

func jsonResponse(description, schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			echo.MIMEApplicationJSON: map[string]interface{}{
				"schema": map[string]string{"$ref": schemaRef},
			},
		},
	}
}

func props(fields map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for name, typ := range fields {
		typ, format, _ := strings.Cut(typ, ":")
		p := map[string]string{"type": typ}
		if format != "" {
			p["format"] = format
		}
		out[name] = p
	}
	return out
}

func componentSchemas() map[string]interface{} {
	object := func(required []string, fields map[string]string) map[string]interface{} {
		s := map[string]interface{}{"type": "object", "properties": props(fields)}
		if len(required) > 0 {
			s["required"] = required
		}
		return s
	}
	return map[string]interface{}{
		"Department": object([]string{"name"}, map[string]string{
			"id": "string:uuid", "name": "string",
			"created_at": "string:date-time", "updated_at": "string:date-time",
		}),
		"Doctor": object([]string{"name", "department_id", "available_days"}, map[string]string{
			"id": "string:uuid", "name": "string", "photo": "string",
			"department_id": "string:uuid", "description": "string",
			"available_days": "string", "start_time": "string:time", "end_time": "string:time",
			"active": "boolean", "created_at": "string:date-time", "updated_at": "string:date-time",
		}),
		"Appointment": object([]string{"patient_name", "phone", "doctor_id", "date", "time"}, map[string]string{
			"id": "string:uuid", "patient_name": "string", "phone": "string",
			"department_id": "string:uuid", "doctor_id": "string:uuid",
			"date": "string:date", "time": "string:time", "reason": "string",
			"created_at": "string:date-time", "updated_at": "string:date-time",
		}),
		"ListResponse": object(nil, map[string]string{
			"data": "array", "total": "integer", "limit": "integer",
			"offset": "integer", "has_more": "boolean",
		}),
		"Error": object([]string{"message"}, map[string]string{
			"message": "string", "reason": "string",
		}),
	}
}

// RegisterRoutes registers GET /openapi.json on the group.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
