package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Tracking API",
        "description": "Admin bulk import of students, faculty and courses",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Imports", "description": "All-or-nothing CSV/XLSX bulk imports"}
    ],
    "paths": {
        "/admin/bulk-students": {
            "post": {
                "tags": ["Imports"],
                "summary": "Bulk import students",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "dryRun", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Dry run", "schema": {"$ref": "#/definitions/ImportResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ImportResponse"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/ImportResponse"}},
                    "409": {"description": "Concurrent conflict", "schema": {"$ref": "#/definitions/ImportResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ImportResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/ImportResponse"}}
                }
            }
        },
        "/admin/bulk-faculty": {
            "post": {
                "tags": ["Imports"],
                "summary": "Bulk import faculty",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "dryRun", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ImportResponse"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/ImportResponse"}}
                }
            }
        },
        "/admin/bulk-courses": {
            "post": {
                "tags": ["Imports"],
                "summary": "Bulk import courses",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "dryRun", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ImportResponse"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/ImportResponse"}}
                }
            }
        },
        "/admin/bulk-templates/{kind}": {
            "get": {
                "tags": ["Imports"],
                "summary": "Download an upload template",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "kind", "in": "path", "type": "string", "required": true, "enum": ["students", "faculty", "courses"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "Template file"},
                    "404": {"description": "Unknown kind", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/imports/{id}": {
            "get": {
                "tags": ["Imports"],
                "summary": "Get import batch result",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/imports/{id}/report": {
            "get": {
                "tags": ["Imports"],
                "summary": "Download import batch report",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "404": {"description": "Not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CourseRef": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "ImportResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "userIds": {"type": "array", "items": {"type": "string"}},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/CourseRef"}},
                "duplicateCodes": {"type": "array", "items": {"type": "string"}},
                "failureType": {"type": "string", "enum": ["upload", "parse", "schema", "duplicate_codes", "validation", "conflict", "internal"]},
                "batchId": {"type": "string"},
                "dryRun": {"type": "boolean"}
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
