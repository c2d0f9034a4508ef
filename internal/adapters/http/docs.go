package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

// DefaultOpenAPIPath is where the API description is read from, relative to
// the working directory.
const DefaultOpenAPIPath = "api/openapi.yaml"

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Region Mileage API - Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box}*,*::before,*::after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.yaml',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout',
    });
  </script>
</body>
</html>`

// loadOpenAPI reads and validates the API description. It returns the raw
// YAML and its JSON rendering.
func loadOpenAPI(path string) (yamlDoc, jsonDoc []byte, err error) {
	yamlDoc, err = os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(yamlDoc)
	if err != nil {
		return nil, nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, nil, err
	}
	jsonDoc, err = json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	return yamlDoc, jsonDoc, nil
}

// SetupDocs registers Swagger UI at /docs and the OpenAPI description at
// /docs/openapi.yaml and /docs/openapi.json. The description is read and
// validated once; when it cannot be loaded both endpoints answer 404.
func SetupDocs(app *fiber.App, specPath string) {
	if specPath == "" {
		specPath = DefaultOpenAPIPath
	}
	yamlDoc, jsonDoc, err := loadOpenAPI(specPath)
	if err != nil {
		slog.Warn("openapi description unavailable", "path", specPath, "error", err)
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if yamlDoc == nil {
			return errNotFound(c, "openapi description not found")
		}
		c.Set("Content-Type", "application/yaml")
		return c.Send(yamlDoc)
	})

	app.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		if jsonDoc == nil {
			return errNotFound(c, "openapi description not found")
		}
		c.Set("Content-Type", fiber.MIMEApplicationJSON)
		return c.Send(jsonDoc)
	})
}
