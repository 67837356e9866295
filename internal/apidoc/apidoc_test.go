package apidoc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/artist-manager/internal/resource"
)

func TestBuild_PathsPerResource(t *testing.T) {
	reg := resource.Default()
	doc := Build(reg, Info{Title: "Artist Manager API", Version: "test"})

	assert.Equal(t, 2*len(reg.All()), doc.Paths.Len())

	for _, d := range reg.All() {
		collection := doc.Paths.Value(BasePath + "/" + d.Path)
		require.NotNil(t, collection, d.Path)
		assert.NotNil(t, collection.Get, "%s list", d.Path)
		assert.NotNil(t, collection.Post, "%s create", d.Path)

		item := doc.Paths.Value(BasePath + "/" + d.Path + "/{id}")
		require.NotNil(t, item, d.Path)
		assert.NotNil(t, item.Get)
		assert.NotNil(t, item.Patch)
		assert.NotNil(t, item.Delete)
		assert.Nil(t, item.Put, "updates are PATCH only")
	}
}

func TestBuild_Schemas(t *testing.T) {
	doc := Build(resource.Default(), Info{Title: "t", Version: "v"})

	user := doc.Components.Schemas["User"].Value
	require.NotNil(t, user)
	assert.NotContains(t, user.Properties, "password", "write-only field must not be returned")
	assert.Contains(t, user.Properties, "id")

	create := doc.Components.Schemas["UserCreate"].Value
	require.NotNil(t, create)
	assert.Contains(t, create.Required, "password")
	assert.True(t, create.Properties["password"].Value.WriteOnly)
	assert.Equal(t, "email", create.Properties["email"].Value.Format)
	assert.Equal(t, uint64(12), create.Properties["email"].Value.MinLength)

	update := doc.Components.Schemas["UserUpdate"].Value
	require.NotNil(t, update)
	assert.Empty(t, update.Required, "updates are partial")

	label := doc.Components.Schemas["RecordLabel"].Value
	require.NotNil(t, label)
	assert.Contains(t, label.Properties, "signed_artists")
	assert.Contains(t, label.Properties, "contracts")

	finance := doc.Components.Schemas["FinanceRecordCreate"].Value
	require.NotNil(t, finance)
	assert.ElementsMatch(t, []any{"income", "expense"}, finance.Properties["type"].Value.Enum)

	contract := doc.Components.Schemas["ContractCreate"].Value
	require.NotNil(t, contract)
	assert.Equal(t, "date", contract.Properties["start_date"].Value.Format)
	assert.True(t, contract.Properties["end_date"].Value.Nullable)
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "RecordLabel", SchemaName(resource.RecordLabels))
	assert.Equal(t, "SocialMediaProfile", SchemaName(resource.SocialMedia))
	assert.Equal(t, "Artist", SchemaName(resource.Artists))
}

func TestMount_ServesDocument(t *testing.T) {
	doc := Build(resource.Default(), Info{Title: "Artist Manager API", Version: "test"})
	r := chi.NewRouter()
	require.NoError(t, Mount(r, doc))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, SpecPath, nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "3.0.3", body["openapi"])
	paths, ok := body["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/v1/record-labels/{id}")
}

func TestMount_RedirectsToUI(t *testing.T) {
	r := chi.NewRouter()
	require.NoError(t, Mount(r, Build(resource.Default(), Info{Title: "t", Version: "v"})))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, DocsPath, nil))

	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, DocsPath+"/index.html", rr.Header().Get("Location"))
}
