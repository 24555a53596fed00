package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Records API",
        "description": "Dynamic student attributes and template-driven report generation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token handling"},
        {"name": "Attributes", "description": "Attribute catalog and per-student values"},
        {"name": "Templates", "description": "Report template registry"},
        {"name": "Reports", "description": "Report generation, download and sharing"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attributes": {
            "get": {
                "tags": ["Attributes"],
                "summary": "List catalog attributes",
                "parameters": [
                    {"name": "all", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attributes"],
                "summary": "Register a catalog attribute",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DefineAttributeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Key already defined"}
                }
            }
        },
        "/attributes/export": {
            "get": {
                "tags": ["Attributes"],
                "summary": "Export the attribute catalog as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV content"}
                }
            }
        },
        "/attributes/{key}": {
            "delete": {
                "tags": ["Attributes"],
                "summary": "Deactivate a catalog attribute",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/attributes": {
            "get": {
                "tags": ["Attributes"],
                "summary": "Read all attribute values for a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/attributes/{key}": {
            "put": {
                "tags": ["Attributes"],
                "summary": "Write one attribute value",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WriteAttributeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown attribute"}
                }
            }
        },
        "/templates": {
            "get": {
                "tags": ["Templates"],
                "summary": "List templates available to the caller's role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Templates"],
                "summary": "Publish a template version",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PublishTemplateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/templates/{code}": {
            "get": {
                "tags": ["Templates"],
                "summary": "Get the latest active version of a template",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "version", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Template not found"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Generate a student report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateReportRequest"}},
                    {"name": "async", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Template not found"}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Get one report's state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/reports/{id}/share": {
            "post": {
                "tags": ["Reports"],
                "summary": "Share a completed report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShareReportRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Report not completed"}
                }
            }
        },
        "/reports/{id}/archive": {
            "post": {
                "tags": ["Reports"],
                "summary": "Archive a completed report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Report not archivable"}
                }
            }
        },
        "/downloads/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a report PDF via signed token",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF content"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/students/{id}/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List a student's generation attempts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "DefineAttributeRequest": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "display_name": {"type": "object"},
                "data_type": {"type": "string", "enum": ["text", "number", "date", "boolean", "file", "select", "multiselect"]},
                "required": {"type": "boolean"},
                "sensitive": {"type": "boolean"},
                "encrypted": {"type": "boolean"},
                "validation_rules": {"type": "object"},
                "category": {"type": "string"},
                "ordering": {"type": "integer"}
            },
            "required": ["key", "data_type"]
        },
        "WriteAttributeRequest": {
            "type": "object",
            "properties": {
                "value": {}
            },
            "required": ["value"]
        },
        "PublishTemplateRequest": {
            "type": "object",
            "properties": {
                "template_code": {"type": "string"},
                "report_type": {"type": "string"},
                "html_body": {"type": "string"},
                "css": {"type": "string"},
                "data_sources": {"type": "array", "items": {"type": "object"}},
                "labels": {"type": "object"},
                "allowed_roles": {"type": "array", "items": {"type": "string"}},
                "is_default": {"type": "boolean"}
            },
            "required": ["template_code", "report_type", "html_body"]
        },
        "GenerateReportRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "template_code": {"type": "string"},
                "language": {"type": "string", "enum": ["ko", "vi"]},
                "period_start": {"type": "string"},
                "period_end": {"type": "string"}
            },
            "required": ["student_id", "template_code"]
        },
        "ShareReportRequest": {
            "type": "object",
            "properties": {
                "user_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["user_ids"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
