package validators

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/pagination"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type pageQuery struct {
	Limit  int    `validate:"min=1,max=100"`
	Cursor string `validate:"max=512"`
}

// ParsePageParams reads limit and cursor. A cursor that does not decode is a
// validation error rather than a silent first page.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	page := pageQuery{Limit: pagination.DefaultLimit, Cursor: strings.TrimSpace(q.Get("cursor"))}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pagination.Params{}, fieldError("limit", "limit must be numeric", nil)
		}
		page.Limit = n
	}
	if err := validate.Struct(page); err != nil {
		return pagination.Params{}, translate(err)
	}
	if _, err := pagination.ParseCursor(page.Cursor); err != nil {
		return pagination.Params{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	return pagination.Params{Limit: page.Limit, Cursor: page.Cursor}, nil
}

// translate turns the first validator failure into a validation error naming
// the query field.
func translate(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query")
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	details := map[string]any{"rule": fe.Tag()}
	if fe.Param() != "" {
		details["param"] = fe.Param()
	}
	return fieldError(field, field+" out of range", details)
}

func fieldError(field, msg string, extra map[string]any) error {
	details := map[string]any{"field": field}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}
