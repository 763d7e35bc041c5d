// Package web serves the embedded OpenAPI document and the Swagger UI.
package web

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	httpSwagger "github.com/swaggo/http-swagger"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

var (
	openAPIJSON     []byte
	openAPIJSONErr  error
	openAPIJSONOnce sync.Once
)

// Spec paths registered by RegisterDocsRoutes.
const (
	SpecJSONPath = "/apispec.json"
	SpecYAMLPath = "/apispec.yaml"
	UIPath       = "/apidocs"
)

// OpenAPIYAML returns the embedded document as written.
func OpenAPIYAML() []byte {
	return openAPIYAML
}

// OpenAPIJSON returns the embedded document converted to JSON.
func OpenAPIJSON() ([]byte, error) {
	openAPIJSONOnce.Do(func() {
		var doc map[string]interface{}
		if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
			openAPIJSONErr = fmt.Errorf("parsing openapi document: %w", err)
			return
		}
		openAPIJSON, openAPIJSONErr = json.Marshal(doc)
	})
	return openAPIJSON, openAPIJSONErr
}

// RegisterDocsRoutes serves the document as JSON and YAML and mounts the
// Swagger UI under /apidocs pointing at the JSON form.
func RegisterDocsRoutes(e *echo.Echo) {
	e.GET(SpecJSONPath, func(c echo.Context) error {
		doc, err := OpenAPIJSON()
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, doc)
	})

	e.GET(SpecYAMLPath, func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", OpenAPIYAML())
	})

	ui := echo.WrapHandler(httpSwagger.Handler(httpSwagger.URL(SpecJSONPath)))
	e.GET(UIPath, func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, UIPath+"/index.html")
	})
	e.GET(UIPath+"/*", ui)
}
