package web

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when submitted values fail validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Message
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// fileRef identifies a file from the URL path.
type fileRef struct {
	FileID string `form:"fileID" validate:"required,uuid"`
}

type cleanForm struct {
	fileRef
	Action string `form:"action" validate:"required,action"`
}

type columnsForm struct {
	fileRef
	Columns []string `form:"columns" validate:"dive,required"`
}

type chartForm struct {
	fileRef
	Show string `form:"show" validate:"required,boolean"`
}

type downloadForm struct {
	fileRef
	Format string `form:"format" validate:"required,format"`
}

// convertForm is the field set of a one-shot conversion request.
type convertForm struct {
	Actions   []string `form:"actions" validate:"max=8,dive,action"`
	Columns   []string `form:"columns" validate:"dive,required"`
	Format    string   `form:"format" validate:"omitempty,format"`
	Visualize string   `form:"visualize" validate:"omitempty,boolean"`
}

// request converts a validated form into a pipeline request.
func (f convertForm) request() sweep.Request {
	req := sweep.Request{Columns: f.Columns}
	for _, a := range f.Actions {
		action, _ := sweep.ParseAction(a)
		req.Actions = append(req.Actions, action)
	}
	if f.Format != "" {
		target, _ := sweep.ParseFormat(f.Format)
		req.Target = &target
	}
	req.Visualize, _ = strconv.ParseBool(f.Visualize)
	return req
}

// formValues collects every value for key, splitting comma lists so API
// callers can send either repeated fields or "a,b". Column names may hold
// commas, so columns are read with r.Form directly.
func formValues(form url.Values, key string) []string {
	var out []string
	for _, v := range form[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseForm parses the request form, reporting malformed bodies as a
// validation failure.
func parseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "form", Message: err.Error()}}}
	}
	return nil
}

func parseConvertForm(r *http.Request) convertForm {
	return convertForm{
		Actions:   formValues(r.Form, "actions"),
		Columns:   r.Form["columns"],
		Format:    r.FormValue("format"),
		Visualize: r.FormValue("visualize"),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("action", func(fl validator.FieldLevel) bool {
		_, err := sweep.ParseAction(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("format", func(fl validator.FieldLevel) bool {
		_, err := sweep.ParseFormat(fl.Field().String())
		return err == nil
	})

	// Use form tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateForm validates v and converts failures to a ValidationError.
func validateForm(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return out
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", field, param)
	case "uuid":
		return fmt.Sprintf("%s must be a valid file ID", field)
	case "boolean":
		return fmt.Sprintf("%s must be true or false", field)
	case "action":
		return fmt.Sprintf("%s must be remove_duplicates or fill_missing", field)
	case "format":
		return fmt.Sprintf("%s must be csv or xlsx", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
