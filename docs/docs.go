// Package docs holds the OpenAPI description of the Baumi API.
//
// Regenerate with: swag init -g cmd/baumi-core/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Baumi Labs"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns the health status of the API",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Pings the knowledge base store and, when configured, the lock backend",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/version": {
            "get": {
                "description": "Returns the current API version",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Get API version",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VersionResponse"}}
                }
            }
        },
        "/knowledge-bases": {
            "get": {
                "description": "Returns all knowledge bases, most recently updated first",
                "produces": ["application/json"],
                "tags": ["KnowledgeBases"],
                "summary": "List knowledge bases",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.KnowledgeBase"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Reconciles the records against the stored knowledge base of the same name (smart), or overwrites its snapshot (replace)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["KnowledgeBases"],
                "summary": "Upload a knowledge base",
                "parameters": [
                    {"description": "Knowledge base upload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.SyncKnowledgeBaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SyncResult"}},
                    "400": {"description": "Malformed upload", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Sync for the same name in progress", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "413": {"description": "Upload larger than 16 MiB", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/knowledge-bases/{id}": {
            "delete": {
                "description": "Removes a knowledge base together with its items",
                "produces": ["application/json"],
                "tags": ["KnowledgeBases"],
                "summary": "Delete a knowledge base",
                "parameters": [
                    {"type": "string", "description": "Knowledge base ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SuccessResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/knowledge-bases/{id}/items": {
            "get": {
                "description": "Returns the normalised items of one knowledge base",
                "produces": ["application/json"],
                "tags": ["KnowledgeBases"],
                "summary": "List knowledge base items",
                "parameters": [
                    {"type": "string", "description": "Knowledge base ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.KnowledgeBaseItem"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/chat": {
            "post": {
                "description": "Streams the answer as plain text, flushed per token",
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["Chat"],
                "summary": "Chat with Baumi",
                "parameters": [
                    {"description": "Conversation", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ChatRequestBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Chat model not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Model provider failed", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ChatMessage": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "assistant"]}
            }
        },
        "domain.KnowledgeBase": {
            "type": "object",
            "properties": {
                "contentHash": {"type": "string"},
                "createdAt": {"type": "string"},
                "data": {"type": "array", "items": {"type": "object"}},
                "datasetVersion": {"type": "string"},
                "id": {"type": "string"},
                "itemCount": {"type": "string", "example": "1"},
                "name": {"type": "string"},
                "ownerId": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.KnowledgeBaseItem": {
            "type": "object",
            "properties": {
                "contentHash": {"type": "string"},
                "createdAt": {"type": "string"},
                "id": {"type": "string"},
                "identityKey": {"type": "string"},
                "knowledgeBaseId": {"type": "string"},
                "metadata": {"type": "object"},
                "pageContent": {"type": "string"},
                "position": {"type": "integer"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.SyncStats": {
            "type": "object",
            "properties": {
                "added": {"type": "integer"},
                "skipped": {"type": "integer"},
                "total": {"type": "integer"},
                "updated": {"type": "integer"}
            }
        },
        "domain.SyncResult": {
            "allOf": [
                {"$ref": "#/definitions/domain.KnowledgeBase"},
                {"type": "object", "properties": {"stats": {"$ref": "#/definitions/domain.SyncStats"}}}
            ]
        },
        "http.ChatRequestBody": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.ChatMessage"}}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "data must be an array"}
            }
        },
        "http.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "http.SuccessResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true}
            }
        },
        "http.SyncKnowledgeBaseRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"type": "object"}},
                "datasetVersion": {"type": "string", "example": "2024-05-01"},
                "name": {"type": "string", "example": "catalog"},
                "updateMode": {"type": "string", "enum": ["smart", "replace"], "example": "smart"}
            }
        },
        "http.VersionResponse": {
            "type": "object",
            "properties": {
                "version": {"type": "string", "example": "1.0.0"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Baumi API",
	Description:      "Knowledge base ingestion and streaming chat for the Baumi shop assistant.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
