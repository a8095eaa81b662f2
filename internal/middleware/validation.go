package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"challengeapp/internal/observability"
)

// Request body schemas for the mutating endpoints, compiled at startup.
var requestSchemas = map[string]string{
	"login": `{
		"type": "object",
		"required": ["username", "password"],
		"properties": {
			"username": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`,
	"challenge_create": `{
		"type": "object",
		"required": ["matiere", "question", "date"],
		"properties": {
			"matiere": {"type": "string", "minLength": 1, "maxLength": 32},
			"question": {"type": "string", "minLength": 1},
			"date": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`,
	"subscriptions_update": `{
		"type": "object",
		"required": ["subscriptions"],
		"properties": {
			"subscriptions": {
				"type": "array",
				"items": {"type": "string", "minLength": 1, "maxLength": 32}
			}
		},
		"additionalProperties": false
	}`,
	"matiere_create": `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string", "minLength": 1, "maxLength": 32},
			"description": {"type": "string"},
			"granularite": {"type": "string"}
		},
		"additionalProperties": false
	}`,
}

var compiledSchemas = compileRequestSchemas()

func compileRequestSchemas() map[string]*gojsonschema.Schema {
	compiled := make(map[string]*gojsonschema.Schema, len(requestSchemas))
	for name, raw := range requestSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic("invalid request schema " + name + ": " + err.Error())
		}
		compiled[name] = schema
	}
	return compiled
}

// ValidateRequestBody returns a middleware that validates the JSON request
// body against the named schema before the handler runs. The body is
// restored so the handler can bind it normally.
func ValidateRequestBody(schemaName string, logger *observability.Logger) gin.HandlerFunc {
	schema, ok := compiledSchemas[schemaName]
	if !ok {
		panic("unknown request schema: " + schemaName)
	}

	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation")
		defer span.End()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Could not read request body",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Request body is not valid JSON",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}

		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				details = append(details, desc.String())
			}
			logger.Warn(ctx, "Request body failed schema validation", map[string]interface{}{
				"schema": schemaName,
				"path":   c.Request.URL.Path,
				"errors": details,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Request body failed validation",
				"code":    "INVALID_INPUT",
				"details": details,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
