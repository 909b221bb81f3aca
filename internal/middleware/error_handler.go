package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"catalog-admin-service/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ErrorKind selects the renderer for an error
type ErrorKind string

const (
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindMethodNotAllowed ErrorKind = "method_not_allowed"
	KindNotFound         ErrorKind = "not_found"
	KindValidation       ErrorKind = "validation"
	KindHTTP             ErrorKind = "http"
	KindInternal         ErrorKind = "internal"
)

// Common error codes
const (
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

const (
	MessageUnauthenticated  = "Unauthenticated. Please log in first."
	MessageRouteNotFound    = "Route not found."
	MessageMethodNotAllowed = "Method not allowed for this route."
	MessageValidation       = "Validation error."
	MessageInternal         = "Internal server error."
)

// FieldErrors maps a request field to its validation messages
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// CustomError represents an application error with an HTTP rendering
type CustomError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
	Fields     FieldErrors
	Allowed    []string
	Err        error

	file string
	line int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// PanicError carries a recovered panic to the catch-all renderer
type PanicError struct {
	Value interface{}
	Stack []byte
	file  string
	line  int
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func NewUnauthenticatedError(message string) *CustomError {
	if message == "" {
		message = MessageUnauthenticated
	}
	return &CustomError{Kind: KindUnauthenticated, Code: ErrCodeUnauthorized, Message: message, StatusCode: http.StatusUnauthorized}
}

func NewForbiddenError(message string) *CustomError {
	return &CustomError{Kind: KindHTTP, Code: ErrCodeForbidden, Message: message, StatusCode: http.StatusForbidden}
}

func NewNotFoundError(message string) *CustomError {
	if message == "" {
		message = MessageRouteNotFound
	}
	return &CustomError{Kind: KindNotFound, Code: ErrCodeNotFound, Message: message, StatusCode: http.StatusNotFound}
}

func NewMethodNotAllowedError(allowed []string) *CustomError {
	return &CustomError{
		Kind:       KindMethodNotAllowed,
		Code:       ErrCodeMethodNotAllowed,
		Message:    MessageMethodNotAllowed,
		StatusCode: http.StatusMethodNotAllowed,
		Allowed:    allowed,
	}
}

func NewValidationError(fields FieldErrors) *CustomError {
	return &CustomError{
		Kind:       KindValidation,
		Code:       ErrCodeValidationFailed,
		Message:    MessageValidation,
		StatusCode: http.StatusUnprocessableEntity,
		Fields:     fields,
	}
}

// NewFieldError is a validation error on a single field
func NewFieldError(field, message string) *CustomError {
	fields := FieldErrors{}
	fields.Add(field, message)
	return NewValidationError(fields)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details map[string]interface{}) *CustomError {
	return &CustomError{Kind: KindHTTP, Code: ErrCodeBadRequest, Message: message, StatusCode: http.StatusBadRequest, Details: details}
}

func NewConflictError(message string) *CustomError {
	return &CustomError{Kind: KindHTTP, Code: ErrCodeConflict, Message: message, StatusCode: http.StatusConflict}
}

// NewHTTPError is an explicit business failure rendered with the given status
func NewHTTPError(status int, message string) *CustomError {
	return &CustomError{Kind: KindHTTP, Code: http.StatusText(status), Message: message, StatusCode: status}
}

// NewInternalError wraps an unexpected failure and records the caller for debug output
func NewInternalError(err error) *CustomError {
	e := &CustomError{Kind: KindInternal, Code: ErrCodeInternalServer, Message: MessageInternal, StatusCode: http.StatusInternalServerError, Err: err}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.file, e.line = file, line
	}
	return e
}

// NewBindingError translates a request binding failure into a validation error
func NewBindingError(err error) *CustomError {
	return NewValidationError(bindingFieldErrors(err))
}

// ErrorRenderer writes the response for the errors it matches
type ErrorRenderer struct {
	Kind    ErrorKind
	Matches func(err error) bool
	Render  func(c *gin.Context, err error)
}

// ErrorRegistry consults its renderers in priority order; the first match wins.
type ErrorRegistry struct {
	renderers []ErrorRenderer
	debug     bool
	logger    *logrus.Entry
}

// NewErrorRegistry builds the default table. With debug set, internal errors
// expose their type, origin and message.
func NewErrorRegistry(debug bool, logger *logrus.Logger) *ErrorRegistry {
	r := &ErrorRegistry{
		debug:  debug,
		logger: logger.WithField("component", "middleware.errors"),
	}
	r.renderers = []ErrorRenderer{
		{Kind: KindUnauthenticated, Matches: isKind(KindUnauthenticated), Render: r.renderStatus},
		{Kind: KindMethodNotAllowed, Matches: isKind(KindMethodNotAllowed), Render: r.renderMethodNotAllowed},
		{Kind: KindNotFound, Matches: isKind(KindNotFound), Render: r.renderStatus},
		{Kind: KindValidation, Matches: isValidation, Render: r.renderValidation},
		{Kind: KindHTTP, Matches: isKind(KindHTTP), Render: r.renderHTTP},
		{Kind: KindInternal, Matches: func(error) bool { return true }, Render: r.renderInternal},
	}
	return r
}

// register adds a renderer ahead of the catch-all.
func (r *ErrorRegistry) register(renderer ErrorRenderer) {
	last := len(r.renderers) - 1
	r.renderers = append(r.renderers[:last], renderer, r.renderers[last])
}

// kinds lists the renderer kinds in consultation order.
func (r *ErrorRegistry) kinds() []ErrorKind {
	kinds := make([]ErrorKind, len(r.renderers))
	for i, renderer := range r.renderers {
		kinds[i] = renderer.Kind
	}
	return kinds
}

// Render writes the response for err using the first matching renderer.
func (r *ErrorRegistry) Render(c *gin.Context, err error) {
	for _, renderer := range r.renderers {
		if renderer.Matches(err) {
			renderer.Render(c, err)
			return
		}
	}
}

// Middleware renders the last error recorded with c.Error and recovers panics.
func (r *ErrorRegistry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				if c.Writer.Written() {
					panic(rec)
				}
				r.Render(c, newPanicError(rec))
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			r.Render(c, c.Errors.Last().Err)
		}
	}
}

// NoRoute renders the 404 envelope for unknown routes.
func (r *ErrorRegistry) NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(NewNotFoundError(MessageRouteNotFound))
	}
}

func isKind(kind ErrorKind) func(error) bool {
	return func(err error) bool {
		var custom *CustomError
		return errors.As(err, &custom) && custom.Kind == kind
	}
}

func isValidation(err error) bool {
	var verrs validator.ValidationErrors
	return isKind(KindValidation)(err) || errors.As(err, &verrs)
}

func (r *ErrorRegistry) renderStatus(c *gin.Context, err error) {
	var custom *CustomError
	errors.As(err, &custom)
	response.AbortError(c, custom.StatusCode, custom.Message, nil)
}

func (r *ErrorRegistry) renderHTTP(c *gin.Context, err error) {
	var custom *CustomError
	errors.As(err, &custom)
	var data interface{}
	if len(custom.Details) > 0 {
		data = custom.Details
	}
	response.AbortError(c, custom.StatusCode, custom.Message, data)
}

func (r *ErrorRegistry) renderMethodNotAllowed(c *gin.Context, err error) {
	var custom *CustomError
	errors.As(err, &custom)
	allowed := strings.Join(custom.Allowed, ", ")
	c.Header("Allow", allowed)
	response.AbortError(c, http.StatusMethodNotAllowed, custom.Message, gin.H{
		"allowed_methods": allowed,
		"received_method": c.Request.Method,
	})
}

func (r *ErrorRegistry) renderValidation(c *gin.Context, err error) {
	var fields FieldErrors
	var custom *CustomError
	if errors.As(err, &custom) && custom.Kind == KindValidation {
		fields = custom.Fields
	} else {
		fields = bindingFieldErrors(err)
	}
	if fields == nil {
		fields = FieldErrors{}
	}
	response.AbortError(c, http.StatusUnprocessableEntity, MessageValidation, gin.H{"errors": fields})
}

func (r *ErrorRegistry) renderInternal(c *gin.Context, err error) {
	entry := r.logger.WithError(err).WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("request_id"),
	})
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		entry = entry.WithField("stack", string(panicErr.Stack))
	}
	entry.Error("Unhandled error")

	if !r.debug {
		response.AbortError(c, http.StatusInternalServerError, MessageInternal, nil)
		return
	}

	exception, file, line, message := describe(err)
	response.AbortError(c, http.StatusInternalServerError, message, gin.H{
		"exception": exception,
		"file":      file,
		"line":      line,
	})
}

// describe picks the innermost cause for the debug payload.
func describe(err error) (exception, file string, line int, message string) {
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return fmt.Sprintf("%T", panicErr.Value), panicErr.file, panicErr.line, panicErr.Error()
	}
	var custom *CustomError
	if errors.As(err, &custom) && custom.Err != nil {
		return fmt.Sprintf("%T", custom.Err), custom.file, custom.line, custom.Err.Error()
	}
	return fmt.Sprintf("%T", err), "", 0, err.Error()
}

func newPanicError(value interface{}) *PanicError {
	e := &PanicError{Value: value, Stack: debug.Stack()}
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			e.file, e.line = frame.File, frame.Line
			break
		}
		if !more {
			break
		}
	}
	return e
}

var registerTagNameOnce sync.Once

// UseJSONFieldNames makes validator report fields by their json names.
func UseJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(field reflect.StructField) string {
				name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name == "" {
					return field.Name
				}
				return name
			})
		}
	})
}

func bindingFieldErrors(err error) FieldErrors {
	fields := FieldErrors{}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			name := fieldPath(fe)
			fields.Add(name, validationMessage(fe, name))
		}
		return fields
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		fields.Add(typeErr.Field, fmt.Sprintf("The %s field has an invalid type.", humanize(typeErr.Field)))
		return fields
	}

	fields.Add("body", "The request body is invalid.")
	return fields
}

// fieldPath drops the root struct name from the namespace: "categories[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func humanize(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return strings.ReplaceAll(field, "_", " ")
}

func validationMessage(fe validator.FieldError, name string) string {
	field := humanize(name)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must have at least %s items.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must not have more than %s items.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "datetime":
		return fmt.Sprintf("The %s field must be a valid date.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
