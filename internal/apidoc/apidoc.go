// Package apidoc generates the OpenAPI 3 description of the API from the
// resource registry and serves it together with Swagger UI.
package apidoc

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/sakif/artist-manager/internal/resource"
)

const (
	// BasePath prefixes every resource route.
	BasePath = "/api/v1"
	// DocsPath is where the UI and the JSON document are served.
	DocsPath = "/api-docs"
	// SpecPath is the machine-readable document.
	SpecPath = DocsPath + "/openapi.json"
)

// Info is the document's title block.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Build describes every resource in reg: list/create on the collection,
// get/update/delete on /{id}, and three schemas per resource (the record as
// returned, the create body and the update body).
func Build(reg *resource.Registry, info Info) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	addSharedSchemas(doc)

	for _, d := range reg.All() {
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: d.Tag})

		name := SchemaName(d)
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", recordSchema(d))
		doc.Components.Schemas[name+"Create"] = openapi3.NewSchemaRef("", inputSchema(d, true))
		doc.Components.Schemas[name+"Update"] = openapi3.NewSchemaRef("", inputSchema(d, false))

		addPaths(doc, d, name)
	}

	return doc
}

// SchemaName turns a display name into a component name:
// "Record label" becomes "RecordLabel".
func SchemaName(d *resource.Descriptor) string {
	var b strings.Builder
	for _, word := range strings.Fields(d.Name) {
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func addSharedSchemas(doc *openapi3.T) {
	fieldError := openapi3.NewObjectSchema().
		WithProperty("field", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema())
	fieldError.Required = []string{"field", "message"}

	errSchema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema().WithEnum("invalid_id", "validation_error", "not_found", "internal_error")).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("errors", openapi3.NewArraySchema().WithItems(fieldError)).
		WithProperty("trace_id", openapi3.NewStringSchema())
	errSchema.Required = []string{"error", "message"}

	msg := openapi3.NewObjectSchema().WithProperty("message", openapi3.NewStringSchema())
	msg.Required = []string{"message"}

	doc.Components.Schemas["Error"] = openapi3.NewSchemaRef("", errSchema)
	doc.Components.Schemas["Message"] = openapi3.NewSchemaRef("", msg)
}

// recordSchema is the record as the API returns it. Write-only fields are
// left out.
func recordSchema(d *resource.Descriptor) *openapi3.Schema {
	s := openapi3.NewObjectSchema()

	id := openapi3.NewInt64Schema()
	id.ReadOnly = true
	s.WithProperty("id", id)

	required := []string{"id"}
	for _, f := range d.Fields {
		if f.WriteOnly {
			continue
		}
		s.WithProperty(f.Name, fieldSchema(f))
		required = append(required, f.Name)
	}
	for _, rel := range d.Relations {
		s.WithProperty(rel.Field, relationSchema(rel))
		required = append(required, rel.Field)
	}

	for _, ts := range []string{"created_at", "updated_at"} {
		t := openapi3.NewDateTimeSchema()
		t.ReadOnly = true
		s.WithProperty(ts, t)
		required = append(required, ts)
	}

	s.Required = required
	return s
}

// inputSchema is a request body. Create bodies list their required
// fields; update bodies require nothing.
func inputSchema(d *resource.Descriptor, create bool) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	var required []string
	for _, f := range d.Fields {
		fs := fieldSchema(f)
		if f.WriteOnly {
			fs.WriteOnly = true
		}
		s.WithProperty(f.Name, fs)
		if create && f.Required {
			required = append(required, f.Name)
		}
	}
	for _, rel := range d.Relations {
		s.WithProperty(rel.Field, relationSchema(rel))
	}
	s.Required = required
	return s
}

func relationSchema(rel resource.Relation) *openapi3.Schema {
	s := openapi3.NewArraySchema().WithItems(openapi3.NewInt64Schema())
	s.Description = fmt.Sprintf("Ids of connected %s. Supplied ids are linked; existing links are kept.", rel.Target)
	return s
}

// fieldSchema maps a field's type and validator tags onto schema keywords.
func fieldSchema(f resource.Field) *openapi3.Schema {
	var s *openapi3.Schema
	switch f.Type {
	case resource.Integer:
		s = openapi3.NewInt64Schema()
	case resource.Number:
		s = openapi3.NewFloat64Schema()
	default:
		s = openapi3.NewStringSchema()
	}

	for _, rule := range strings.Split(f.Rules, ",") {
		tag, param, _ := strings.Cut(strings.TrimSpace(rule), "=")
		applyRule(s, f.Type, tag, param)
	}

	if f.Nullable {
		s.Nullable = true
	}

	desc := f.Description
	if f.Ref != "" {
		desc = strings.TrimSpace(fmt.Sprintf("%s Id of a %s record.", desc, f.Ref))
	}
	s.Description = desc
	return s
}

func applyRule(s *openapi3.Schema, t resource.Type, tag, param string) {
	switch tag {
	case "min", "max", "len":
		n, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return
		}
		if t == resource.String {
			length := uint64(n)
			if tag != "max" {
				s.MinLength = length
			}
			if tag != "min" {
				s.MaxLength = &length
			}
			return
		}
		if tag != "max" {
			s.Min = &n
		}
		if tag != "min" {
			s.Max = &n
		}
	case "email":
		s.Format = "email"
	case "url":
		s.Format = "uri"
	case "datetime":
		if param == "2006-01-02" {
			s.Format = "date"
		}
	case "oneof":
		for _, v := range strings.Fields(param) {
			s.Enum = append(s.Enum, v)
		}
	case "alpha":
		s.Pattern = "^[A-Za-z]+$"
	}
}

func jsonResponse(description, schema string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchemaRef(ref(schema))}
}

func errorResponse(description string) *openapi3.ResponseRef {
	return jsonResponse(description, "Error")
}

func addPaths(doc *openapi3.T, d *resource.Descriptor, name string) {
	lower := d.LowerName()
	idParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").
		WithDescription("Positive integer id").
		WithSchema(openapi3.NewInt64Schema().WithMin(1))}

	body := func(schema string) *openapi3.RequestBodyRef {
		return &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(ref(schema))}
	}

	listSchema := openapi3.NewArraySchema()
	listSchema.Items = ref(name)
	list := openapi3.NewResponse().
		WithDescription(fmt.Sprintf("Every %s in insertion order", lower)).
		WithJSONSchema(listSchema)

	doc.Paths.Set(BasePath+"/"+d.Path, &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{d.Tag},
			Summary:     fmt.Sprintf("List %s records", lower),
			OperationID: "list" + name,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: list}),
				openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Internal error")),
			),
		},
		Post: &openapi3.Operation{
			Tags:        []string{d.Tag},
			Summary:     fmt.Sprintf("Create a %s", lower),
			OperationID: "create" + name,
			RequestBody: body(name + "Create"),
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusCreated, jsonResponse("Created", name)),
				openapi3.WithStatus(http.StatusBadRequest, errorResponse("Validation failed")),
				openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Internal error")),
			),
		},
	})

	byID := func(op *openapi3.Operation) *openapi3.Operation {
		op.Tags = []string{d.Tag}
		op.Parameters = openapi3.Parameters{idParam}
		op.Responses.Set(strconv.Itoa(http.StatusNotFound), errorResponse(d.Name+" not found"))
		op.Responses.Set(strconv.Itoa(http.StatusInternalServerError), errorResponse("Internal error"))
		return op
	}

	doc.Paths.Set(BasePath+"/"+d.Path+"/{id}", &openapi3.PathItem{
		Get: byID(&openapi3.Operation{
			Summary:     fmt.Sprintf("Get a %s by id", lower),
			OperationID: "get" + name,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK, jsonResponse("Found", name)),
				openapi3.WithStatus(http.StatusBadRequest, errorResponse("Malformed id")),
			),
		}),
		Patch: byID(&openapi3.Operation{
			Summary:     fmt.Sprintf("Update a %s; only supplied fields change", lower),
			OperationID: "update" + name,
			RequestBody: body(name + "Update"),
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK, jsonResponse("Updated", name)),
				openapi3.WithStatus(http.StatusBadRequest, errorResponse("Malformed id or validation failed")),
			),
		}),
		Delete: byID(&openapi3.Operation{
			Summary:     fmt.Sprintf("Delete a %s", lower),
			OperationID: "delete" + name,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK, jsonResponse("Deleted", "Message")),
				openapi3.WithStatus(http.StatusBadRequest, errorResponse("Malformed id")),
			),
		}),
	})
}

// Mount serves the document at SpecPath and Swagger UI under DocsPath.
// The document is marshalled once, up front.
func Mount(r chi.Router, doc *openapi3.T) error {
	spec, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("apidoc: marshalling document: %w", err)
	}

	r.Get(SpecPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(spec)
	})
	r.Get(DocsPath, http.RedirectHandler(DocsPath+"/index.html", http.StatusMovedPermanently).ServeHTTP)
	r.Get(DocsPath+"/*", httpSwagger.Handler(httpSwagger.URL(SpecPath)))
	return nil
}
