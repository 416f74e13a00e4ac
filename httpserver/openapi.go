package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// OpenAPI schema for the launcher control API
const openAPISchema = `{
  "openapi": "3.0.0",
  "info": {
    "title": "TOXIKK Server Launcher API",
    "description": "Remote control for the dedicated servers of a MyServerConfig.ini",
    "version": "1.0.0"
  },
  "servers": [
    {
      "url": "/api/v1",
      "description": "API v1"
    }
  ],
  "security": [
    {
      "bearerAuth": []
    }
  ],
  "components": {
    "securitySchemes": {
      "bearerAuth": {
        "type": "http",
        "scheme": "bearer",
        "bearerFormat": "JWT",
        "description": "HS256 token signed with the key in ApiKeyFile. The sub claim names the caller; exp is required."
      }
    },
    "schemas": {
      "Error": {
        "type": "object",
        "properties": {
          "error": {"type": "string", "description": "Error type"},
          "message": {"type": "string", "description": "Error message"},
          "code": {"type": "integer", "description": "HTTP status code"}
        }
      },
      "Server": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "description": "Profile id, 0 is the client"},
          "section": {"type": "string", "description": "Config section, e.g. DedicatedServer1"},
          "name": {"type": "string", "description": "Display name"},
          "running": {"type": "boolean"},
          "pid": {"type": "integer"}
        }
      },
      "ServerList": {
        "type": "object",
        "properties": {
          "servers": {"type": "array", "items": {"$ref": "#/components/schemas/Server"}}
        }
      },
      "Action": {
        "type": "object",
        "properties": {
          "action": {"type": "string"},
          "server": {"$ref": "#/components/schemas/Server"}
        }
      },
      "Generated": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "section": {"type": "string"},
          "target_dir": {"type": "string"},
          "map": {"type": "string"},
          "options": {"type": "string", "description": "Connection string appended to the map"},
          "cmdline": {"type": "string"},
          "files": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "responses": {
      "Unauthorized": {
        "description": "Missing or invalid bearer token",
        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
      },
      "NotFound": {
        "description": "No configuration with this id",
        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
      },
      "TooManyRequests": {
        "description": "API rate limit exceeded",
        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}
      }
    }
  },
  "paths": {
    "/servers": {
      "get": {
        "summary": "List server profiles",
        "responses": {
          "200": {"description": "Profiles", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ServerList"}}}},
          "401": {"$ref": "#/components/responses/Unauthorized"},
          "429": {"$ref": "#/components/responses/TooManyRequests"}
        }
      }
    },
    "/servers/{id}": {
      "get": {
        "summary": "Get a server profile",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Profile", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Server"}}}},
          "401": {"$ref": "#/components/responses/Unauthorized"},
          "404": {"$ref": "#/components/responses/NotFound"}
        }
      }
    },
    "/servers/{id}/{action}": {
      "post": {
        "summary": "Start, stop, restart or generate a server",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "action", "in": "path", "required": true, "schema": {"type": "string", "enum": ["start", "stop", "restart", "generate"]}}
        ],
        "responses": {
          "200": {
            "description": "Server state after the action, or the generated folder for generate",
            "content": {"application/json": {"schema": {"oneOf": [{"$ref": "#/components/schemas/Action"}, {"$ref": "#/components/schemas/Generated"}]}}}
          },
          "401": {"$ref": "#/components/responses/Unauthorized"},
          "404": {"$ref": "#/components/responses/NotFound"},
          "409": {"description": "Server already running or not running", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}},
          "422": {"description": "Profile has no map", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Error"}}}},
          "429": {"$ref": "#/components/responses/TooManyRequests"}
        }
      }
    }
  }
}`

// handleOpenAPISchema serves the OpenAPI schema
func (s *Server) handleOpenAPISchema(w http.ResponseWriter, _ *http.Request) {
	// Parse and re-encode to ensure valid JSON and pretty printing
	var schema any
	if err := json.Unmarshal([]byte(openAPISchema), &schema); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to parse OpenAPI schema")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(schema); err != nil {
		s.logger.Error(logging.DestinationHTTP, "Failed to encode OpenAPI schema", "error", err)
	}
}
