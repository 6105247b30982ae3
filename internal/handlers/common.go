// common.go
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

package handlers

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/types"
	"github.com/localnerve/salesops/internal/utils"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

// newValidator reports fields by their JSON names and understands decimal amounts
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// bindJSON decodes and validates the request body into dst
func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return types.Invalid("malformed JSON body: %v", err)
	}
	return validate.Struct(dst)
}

// validationProblems maps validator failures to field -> problems, keyed by
// the JSON path below the root struct (customers[0].items[1].productCode)
func validationProblems(err error) map[string][]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	problems := map[string][]string{}
	for _, fe := range ve {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}

		switch fe.Tag() {
		case "required":
			problems[field] = append(problems[field], "This field is required")
		case "min", "gte":
			problems[field] = append(problems[field], "Value is too small, min: "+fe.Param())
		case "max", "lte":
			problems[field] = append(problems[field], "Value is too large, max: "+fe.Param())
		case "len":
			problems[field] = append(problems[field], "Value must have length "+fe.Param())
		case "oneof":
			problems[field] = append(problems[field], "Value must be one of: "+fe.Param())
		case "email":
			problems[field] = append(problems[field], "Value must be a valid email address")
		case "datetime":
			problems[field] = append(problems[field], "Value must be a date formatted as "+fe.Param())
		default:
			problems[field] = append(problems[field], "Invalid value provided")
		}
	}
	return problems
}

// writeError renders err in the standard envelope, choosing the status from
// the domain error class. Unclassified errors are logged and reported as 500.
func writeError(c *fiber.Ctx, log *logger.Logger, err error, op string) error {
	if problems := validationProblems(err); problems != nil {
		return utils.ValidationErrorResponse(c, "Request validation failed", problems)
	}

	var custom *types.CustomError
	switch {
	case errors.Is(err, types.ErrValidation):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, utils.ErrorTypeValidation)
	case errors.Is(err, types.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, types.ErrConflict):
		return utils.ConflictResponse(c, err.Error())
	case errors.As(err, &custom):
		return utils.ErrorResponse(c, custom.Message, custom.Code, custom.Type)
	}

	log.Error("request failed", "op", op, "url", c.OriginalURL(), "requestId", requestID(c), "error", err)
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, op)
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}

// paramID parses a positive id path parameter
func paramID(c *fiber.Ctx, name string) (uint64, error) {
	return types.ParseID(c.Params(name))
}

// queryID parses an optional positive id query parameter; absent is 0
func queryID(c *fiber.Ctx, name string) (uint64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	id, err := types.ParseID(raw)
	if err != nil {
		return 0, types.Invalid("query parameter %s must be a positive integer", name)
	}
	return id, nil
}

// parseDate parses an ISO date, reporting the field name on failure
func parseDate(name, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, types.Invalid("%s must be YYYY-MM-DD: %q", name, value)
	}
	return t, nil
}
