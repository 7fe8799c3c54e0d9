package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Records API",
        "description": "Shared student records with revision history and per-viewer unseen tracking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Collections", "description": "Collection creation and joining"},
        {"name": "Records", "description": "Record listing, viewing and edits"},
        {"name": "Admin", "description": "Admin-key protected roster, subject and export management"}
    ],
    "securityDefinitions": {
        "AdminKey": {"type": "apiKey", "in": "header", "name": "X-Admin-Key"}
    },
    "paths": {
        "/collections": {
            "post": {
                "tags": ["Collections"],
                "summary": "Create collection",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCollectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Code already taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{code}": {
            "get": {
                "tags": ["Collections"],
                "summary": "Get collection",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{code}/join/student": {
            "post": {
                "tags": ["Collections"],
                "summary": "Join as student",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"student_card_code": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown card code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{code}/join/teacher": {
            "post": {
                "tags": ["Collections"],
                "summary": "Join as teacher",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"teacher_id": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collections/{code}/records": {
            "get": {
                "tags": ["Records"],
                "summary": "List records for a viewer",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "viewer", "in": "query", "type": "string", "enum": ["student", "teacher"]},
                    {"name": "studentCardCode", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Records"],
                "summary": "Create record",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRecordRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Record already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}": {
            "get": {
                "tags": ["Records"],
                "summary": "Open record and mark it seen",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "viewer", "in": "query", "type": "string", "enum": ["student", "teacher"]},
                    {"name": "studentCardCode", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Records"],
                "summary": "Submit edit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AppendRevisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent modification", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}/revisions": {
            "get": {
                "tags": ["Records"],
                "summary": "Record revision history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/collections/{code}/students": {
            "get": {
                "tags": ["Admin"],
                "summary": "List students",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Invalid admin key", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Admin"],
                "summary": "Add student",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/collections/{code}/students/{id}": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Delete student and their records",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/admin/collections/{code}/students/upload": {
            "post": {
                "tags": ["Admin"],
                "summary": "Import roster CSV",
                "consumes": ["multipart/form-data"],
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Import summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/collections/{code}/teachers": {
            "get": {
                "tags": ["Admin"],
                "summary": "List teachers",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Admin"],
                "summary": "Register teacher",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddTeacherRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/collections/{code}/teachers/{id}": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Remove teacher",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/admin/collections/{code}/subjects": {
            "post": {
                "tags": ["Admin"],
                "summary": "Add subject",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"subject": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Admin"],
                "summary": "Remove subject",
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "subject", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/collections/{code}/export/records.csv": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export records as CSV",
                "produces": ["text/csv"],
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV file", "schema": {"type": "file"}}
                }
            }
        },
        "/admin/collections/{code}/records/{id}/export.pdf": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export record history as PDF",
                "produces": ["application/pdf"],
                "security": [{"AdminKey": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF file", "schema": {"type": "file"}}
                }
            }
        }
    },
    "definitions": {
        "CreateCollectionRequest": {
            "type": "object",
            "required": ["code", "name", "admin_key"],
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "admin_key": {"type": "string"}
            }
        },
        "CreateRecordRequest": {
            "type": "object",
            "required": ["student_id", "subject"],
            "properties": {
                "student_id": {"type": "string"},
                "subject": {"type": "string"},
                "content": {"type": "string"},
                "editor": {"type": "string"}
            }
        },
        "AppendRevisionRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "note": {"type": "string"},
                "editor": {"type": "string"},
                "expected_version": {"type": "integer"}
            }
        },
        "AddStudentRequest": {
            "type": "object",
            "required": ["name", "student_card_code"],
            "properties": {
                "grade": {"type": "integer"},
                "class_number": {"type": "integer"},
                "number": {"type": "integer"},
                "name": {"type": "string"},
                "student_card_code": {"type": "string"}
            }
        },
        "AddTeacherRequest": {
            "type": "object",
            "required": ["teacher_id"],
            "properties": {
                "teacher_id": {"type": "string"},
                "name": {"type": "string"}
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
