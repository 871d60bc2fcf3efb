package graphapi

import (
	"errors"

	"feedhub/internal/middleware"
	"feedhub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/location"
)

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// ResponseError is one entry of the errors array. Status and Data are set for
// failures raised by the feed itself; syntax and validation errors carry neither.
type ResponseError struct {
	Message   string                    `json:"message"`
	Status    int                       `json:"status,omitempty"`
	Data      []models.FieldError       `json:"data,omitempty"`
	Locations []location.SourceLocation `json:"locations,omitempty"`
	Path      []interface{}             `json:"path,omitempty"`
}

// Response is the GraphQL-over-HTTP response body.
type Response struct {
	Data   interface{}     `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// Handler serves POST /graphql (and GET with a query string) against schema. The caller's
// identity comes from middleware.Authenticate; each resolver decides whether it needs one.
func Handler(schema graphql.Schema) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req Request
		if c.Method() == fiber.MethodGet {
			req.Query = c.Query("query")
			req.OperationName = c.Query("operationName")
		} else if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(Response{
				Errors: []ResponseError{{Message: "Invalid request body", Status: fiber.StatusBadRequest}},
			})
		}
		if req.Query == "" {
			return c.Status(fiber.StatusBadRequest).JSON(Response{
				Errors: []ResponseError{{Message: "Must provide query string.", Status: fiber.StatusBadRequest}},
			})
		}

		var actor *models.Identity
		if identity, ok := middleware.IdentityFrom(c); ok {
			actor = &identity
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        WithIdentity(c.UserContext(), actor),
		})

		status := fiber.StatusOK
		if result.Data == nil && !executed(result.Errors) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(Response{
			Data:   result.Data,
			Errors: formatErrors(result.Errors),
		})
	}
}

func formatErrors(errs []gqlerrors.FormattedError) []ResponseError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]ResponseError, 0, len(errs))
	for _, fe := range errs {
		re := ResponseError{
			Message:   fe.Message,
			Locations: fe.Locations,
			Path:      fe.Path,
		}
		if appErr, ok := appErrorOf(fe); ok {
			re.Message = appErr.Message
			re.Status = appErr.Status()
			re.Data = appErr.Data
		}
		out = append(out, re)
	}
	return out
}

// executed reports whether any error came from running a resolver rather than from
// parsing or validating the document.
func executed(errs []gqlerrors.FormattedError) bool {
	for _, fe := range errs {
		if len(fe.Path) > 0 {
			return true
		}
		if _, ok := appErrorOf(fe); ok {
			return true
		}
	}
	return false
}

// appErrorOf digs the resolver's error out of graphql-go's wrapping.
func appErrorOf(fe gqlerrors.FormattedError) (*models.AppError, bool) {
	err := fe.OriginalError()
	var located *gqlerrors.Error
	if errors.As(err, &located) && located.OriginalError != nil {
		err = located.OriginalError
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
