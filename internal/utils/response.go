// response.go
//
// Sales operations data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of salesops.
// salesops is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// salesops is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with salesops.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Error types carried in the envelope's "type" field
const (
	ErrorTypeValidation = "validation"
	ErrorTypeNotFound   = "notFound"
	ErrorTypeConflict   = "conflict"
	ErrorTypeServer     = "server"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// ValidationErrorResponse sends a 400 with per-field problems
func ValidationErrorResponse(c *fiber.Ctx, message string, fields map[string][]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":    fiber.StatusBadRequest,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      ErrorTypeValidation,
		"errors":    fields,
	})
}

// ConflictResponse sends a 409 for a state or uniqueness conflict
func ConflictResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusConflict, ErrorTypeConflict)
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, ErrorTypeNotFound)
}

// MutationSuccessResponse sends {success:true} with optional extra fields
func MutationSuccessResponse(c *fiber.Ctx, status int, extra fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int                 `json:"status"`
	Message   string              `json:"message"`
	Ok        bool                `json:"ok"`
	Timestamp string              `json:"timestamp"`
	URL       string              `json:"url"`
	Type      string              `json:"type,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
}

// SuccessResponseStruct defines the schema for mutation success responses
type SuccessResponseStruct struct {
	Success bool `json:"success"`
}
