package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// pageParams reads page/limit query parameters with safe defaults.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// bindingFieldErrors converts gin binding failures into the field/message
// list carried by 400 responses.
func bindingFieldErrors(err error) []utils.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []utils.FieldError{{Field: "body", Message: "malformed request body"}}
	}

	fields := make([]utils.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email address"
		case "min":
			msg = "must be at least " + fe.Param() + " characters"
		case "oneof":
			msg = "must be one of: " + fe.Param()
		default:
			msg = "is invalid"
		}
		fields = append(fields, utils.FieldError{Field: fe.Field(), Message: msg})
	}
	return fields
}
