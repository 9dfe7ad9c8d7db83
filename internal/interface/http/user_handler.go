package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	userapp "github.com/clearsolutions/users-api/internal/application"
	"github.com/clearsolutions/users-api/pkg/helpers"
	"github.com/clearsolutions/users-api/pkg/response"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
	Clock  helpers.Clock
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger, clock helpers.Clock) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Clock: clock}
}

// Request bodies carry dates as YYYY-MM-DD strings; every field is a pointer
// so that "absent" is distinguishable from a zero value. Required-ness is
// enforced by the service's aggregated validation, not by binding tags.
type createUserRequest struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	BirthDate   *string `json:"birthDate"`
	Address     *string `json:"address"`
	PhoneNumber *string `json:"phoneNumber"`
}

type updateUserRequest struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	BirthDate   *string `json:"birthDate"`
	Address     *string `json:"address"`
	PhoneNumber *string `json:"phoneNumber"`
}

type listUsersQuery struct {
	From      string `form:"from" binding:"required"`
	To        string `form:"to" binding:"required"`
	PageIndex int    `form:"pageIndex,default=0"`
	PageSize  int    `form:"pageSize,default=50"`
}

// userResource is a user view plus its navigational links.
type userResource struct {
	userapp.UserView
	Links response.Links `json:"_links"`
}

type linksBody struct {
	Links response.Links `json:"_links"`
}

// GetUsers handles GET /api/v1/users.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, bindMessage(err))
		return
	}
	from, ok := h.parseDate(c, "from", q.From)
	if !ok {
		return
	}
	to, ok := h.parseDate(c, "to", q.To)
	if !ok {
		return
	}

	views, err := h.Svc.FindAllByBirthDateRange(c.Request.Context(), from, to, q.PageIndex, q.PageSize)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	resources := make([]userResource, 0, len(views))
	for _, v := range views {
		resources = append(resources, userResource{UserView: v, Links: response.SelfDelete(v.ID)})
	}
	c.JSON(http.StatusOK, resources)
}

// CreateUser handles POST /api/v1/users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, bindMessage(err))
		return
	}

	in := userapp.CreateUserInput{
		Email:       deref(req.Email),
		FirstName:   deref(req.FirstName),
		LastName:    deref(req.LastName),
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	}
	if req.BirthDate != nil {
		d, ok := h.parseDate(c, "birthDate", *req.BirthDate)
		if !ok {
			return
		}
		in.BirthDate = d
	}

	id, err := h.Svc.CreateUser(c.Request.Context(), in)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateUser handles PUT /api/v1/users/:id.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, bindMessage(err))
		return
	}

	in := userapp.UpdateUserInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	}
	if req.BirthDate != nil {
		d, ok := h.parseDate(c, "birthDate", *req.BirthDate)
		if !ok {
			return
		}
		in.BirthDate = &d
	}

	if err := h.Svc.UpdateUser(c.Request.Context(), id, in); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, linksBody{Links: response.SelfDelete(id)})
}

// DeleteUser handles DELETE /api/v1/users/:id. Deleting an absent id succeeds.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Svc.DeleteUser(c.Request.Context(), id); err != nil {
		h.serviceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *UserHandler) pathID(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.badRequest(c, "id must be a valid UUID")
		return "", false
	}
	return id.String(), true
}

func (h *UserHandler) parseDate(c *gin.Context, name, value string) (time.Time, bool) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		h.badRequest(c, name+" must be a valid date in format YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func (h *UserHandler) badRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, message, h.Clock.Now())
}

// serviceError translates service failures into the uniform error body. Every
// business rule violation is a 400; anything else is an unexpected fault.
func (h *UserHandler) serviceError(c *gin.Context, err error) {
	var (
		notFound   *userapp.NotFoundError
		conflict   *userapp.EmailConflictError
		validation *userapp.ValidationError
	)
	switch {
	case errors.As(err, &notFound),
		errors.As(err, &conflict),
		errors.As(err, &validation),
		errors.Is(err, userapp.ErrDateRange):
		h.badRequest(c, err.Error())
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("path", c.FullPath()).Error("unhandled service error")
		}
		response.Error(c, http.StatusInternalServerError, "internal server error", h.Clock.Now())
	}
}

// bindMessage converts Gin binding failures into a single client message.
func bindMessage(err error) string {
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return "malformed request body"
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			name := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
			msgs = append(msgs, name+" is required")
		}
		return strings.Join(msgs, "; ")
	}

	if strings.Contains(err.Error(), "EOF") {
		return "malformed request body"
	}
	return "invalid request parameters"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
