package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/example/online-store/internal/api/middleware"
	"github.com/example/online-store/internal/auth"
	"github.com/example/online-store/internal/domain/cart"
	"github.com/example/online-store/internal/domain/catalog"
	"github.com/example/online-store/internal/domain/order"
	"github.com/example/online-store/internal/domain/report"
	"github.com/example/online-store/internal/domain/user"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultPageSize = 10

// errBadRequest marks request parsing failures.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{catalog.ErrProductNotFound, http.StatusNotFound},
	{catalog.ErrCategoryNotFound, http.StatusNotFound},
	{cart.ErrItemNotFound, http.StatusNotFound},
	{order.ErrOrderNotFound, http.StatusNotFound},
	{user.ErrUserNotFound, http.StatusNotFound},

	{catalog.ErrProductExists, http.StatusConflict},
	{catalog.ErrCategoryExists, http.StatusConflict},
	{catalog.ErrProductInUse, http.StatusConflict},
	{catalog.ErrCategoryInUse, http.StatusConflict},
	{user.ErrUserExists, http.StatusConflict},

	{cart.ErrInsufficientStock, http.StatusBadRequest},
	{cart.ErrInvalidQuantity, http.StatusBadRequest},
	{order.ErrEmptyCart, http.StatusBadRequest},
	{order.ErrInvalidTransition, http.StatusBadRequest},
	{order.ErrInvalidStatus, http.StatusBadRequest},
	{catalog.ErrProductUnavailable, http.StatusBadRequest},
	{catalog.ErrCategoryCycle, http.StatusBadRequest},
	{catalog.ErrInvalidName, http.StatusBadRequest},
	{catalog.ErrInvalidPrice, http.StatusBadRequest},
	{catalog.ErrInvalidStock, http.StatusBadRequest},
	{catalog.ErrInvalidDiscount, http.StatusBadRequest},
	{catalog.ErrInvalidPage, http.StatusBadRequest},
	{report.ErrInvalidFilter, http.StatusBadRequest},
	{user.ErrInvalidUsername, http.StatusBadRequest},
	{user.ErrInvalidEmail, http.StatusBadRequest},
	{auth.ErrPasswordTooShort, http.StatusBadRequest},
	{auth.ErrPasswordTooLong, http.StatusBadRequest},
	{errBadRequest, http.StatusBadRequest},

	{user.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrExpiredToken, http.StatusUnauthorized},

	{user.ErrUserDeactivated, http.StatusForbidden},
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": msg}. Unmapped errors are logged
// and reported without detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("component", "api").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		msg = "internal server error"
	}
	respondJSONError(w, msg, status)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into v and checks its validate tags.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return badRequest("%s", validationMessage(fieldErrs))
		}
		return err
	}
	return nil
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email address")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}

// optionalUUID parses a query parameter, returning uuid.Nil when absent.
func optionalUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

func pageQuery(r *http.Request) (page, size int, err error) {
	if page, err = intQuery(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if size, err = intQuery(r, "size", defaultPageSize); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

// currentUser returns the authenticated user's id. Routes using it sit
// behind the auth middleware, so a missing id is a malformed token.
func currentUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, auth.ErrInvalidToken
	}
	return id, nil
}
