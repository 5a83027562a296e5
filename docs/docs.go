// Package docs registers the OpenAPI description served on /swagger.
// Regenerate with `swag init -g cmd/api/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "429": {"description": "Too Many Requests"}}
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user profile",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/permissions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user permissions",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/roles": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["roles"],
                "summary": "List roles",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/companies/{id}/limits": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["companies"],
                "summary": "Check company resource limit",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "resource_type", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "List users",
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/teams/{id}/members/{user_id}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["teams"],
                "summary": "Add a team member",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/ai-providers/{id}/test": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["ai"],
                "summary": "Test AI provider connectivity",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/create-super-admin": {
            "post": {
                "tags": ["admin"],
                "summary": "Bootstrap super admin",
                "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Admin Platform API",
	Description:      "Multi-tenant administration backend: authentication, roles, companies and their resources.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
