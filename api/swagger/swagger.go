package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "BGP Members API",
        "description": "Church membership registration and directory backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Registration", "description": "Public member registration"},
        {"name": "Auth", "description": "Admin authentication"},
        {"name": "Members", "description": "Member directory management"},
        {"name": "Dashboard", "description": "Statistics, analytics and audit trail"}
    ],
    "paths": {
        "/members/register": {
            "post": {
                "tags": ["Registration"],
                "summary": "Register a new member with optional children",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegistrationSubmission"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"},
                    "409": {"description": "Email already registered"},
                    "503": {"description": "Storage unavailable"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate an admin user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Record a logout",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change the authenticated user's password",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/members": {
            "get": {
                "tags": ["Members"],
                "summary": "List members",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["new_member", "active", "inactive"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/members/{id}": {
            "get": {
                "tags": ["Members"],
                "summary": "Get member detail with children",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Members"],
                "summary": "Update member fields",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Members"],
                "summary": "Delete a member and its children",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/members/{id}/status": {
            "patch": {
                "tags": ["Members"],
                "summary": "Update one member's status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid status"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/members/bulk-status": {
            "post": {
                "tags": ["Members"],
                "summary": "Update many members' status at once",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Empty id list or invalid status"}
                }
            }
        },
        "/members/import": {
            "post": {
                "tags": ["Members"],
                "summary": "Bulk import members from CSV or XLSX",
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "file", "in": "formData", "required": true, "type": "file"}],
                "responses": {"200": {"description": "Import summary", "schema": {"$ref": "#/definitions/BulkImportResult"}}}
            }
        },
        "/members/export": {
            "get": {
                "tags": ["Members"],
                "summary": "Download the member roster",
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "xlsx", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "File download"}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard summary counts",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/dashboard/analytics": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Growth and demographic analytics",
                "parameters": [{"name": "days", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/activity-logs": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "List audit trail entries",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "RegistrationSubmission": {
            "type": "object",
            "required": ["first_name", "last_name", "email", "phone", "date_of_birth", "street_address", "city", "state", "zip_code"],
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "date_of_birth": {"type": "string", "format": "date"},
                "street_address": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "zip_code": {"type": "string"},
                "baptism_date": {"type": "string", "format": "date"},
                "marital_status": {"type": "string", "enum": ["single", "married", "divorced", "widowed"]},
                "spouse_name": {"type": "string"},
                "referral_source": {"type": "string"},
                "photo_consent": {"type": "boolean"},
                "social_media_consent": {"type": "boolean"},
                "email_consent": {"type": "boolean"},
                "parental_consent": {"type": "boolean"},
                "children": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "name": {"type": "string"},
                            "date_of_birth": {"type": "string", "format": "date"},
                            "gender": {"type": "string"}
                        }
                    }
                }
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "BulkImportResult": {
            "type": "object",
            "properties": {
                "success": {"type": "integer"},
                "failed": {"type": "integer"},
                "errors": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "row": {"type": "integer"},
                            "error": {"type": "string"}
                        }
                    }
                }
            }
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
                "status": {"type": "integer"},
                "fields": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "field": {"type": "string"},
                            "message": {"type": "string"}
                        }
                    }
                }
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
