package response

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the uniform error envelope: a single message aggregating every
// violation, the HTTP status as its constant name, and a UTC timestamp.
type ErrorBody struct {
	Message    string    `json:"message"`
	HTTPStatus string    `json:"httpStatus"`
	Date       time.Time `json:"date"`
}

// Error renders the uniform error body with the given status code.
func Error(c *gin.Context, status int, message string, now time.Time) {
	c.JSON(status, ErrorBody{
		Message:    message,
		HTTPStatus: statusName(status),
		Date:       now,
	})
}

// statusName renders a status code the way HTTP status constants are named,
// e.g. 400 -> "BAD_REQUEST".
func statusName(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

// Link is an outbound navigational link attached to a resource.
type Link struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// Links maps a relation name to its link, serialized under "_links".
type Links map[string]Link

// SelfDelete builds the deletion link for a user resource.
func SelfDelete(userID string) Links {
	return Links{
		"selfDelete": {
			Href: "/api/v1/users/" + userID,
			Type: http.MethodDelete,
		},
	}
}
