package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pos_admin/internal/auth"
	"pos_admin/internal/users"
)

const msgUserUpdated = "El usuario se ha modificado con éxito"

// usersHandler implements HTTP handlers for member administration.
type usersHandler struct {
	usersService *users.Service
	logger       *zap.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(usersService *users.Service, logger *zap.Logger) *usersHandler {
	return &usersHandler{
		usersService: usersService,
		logger:       logger,
	}
}

func (h *usersHandler) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, users.ErrInvalidID),
		errors.Is(err, users.ErrInvalidName),
		errors.Is(err, users.ErrInvalidLastname),
		errors.Is(err, users.ErrInvalidRole),
		errors.Is(err, users.ErrInvalidStatus):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// handleGetUsers handles GET /users.
func (h *usersHandler) handleGetUsers(ctx *gin.Context) {
	page, pageSize, ok := pageParams(ctx)
	if !ok {
		return
	}

	members, err := h.usersService.GetAllUsers(ctx.Request.Context(), page, pageSize)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	total, err := h.usersService.CountUsers(ctx.Request.Context())
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	_, limit := h.usersService.Page(page, pageSize)
	if page < 1 {
		page = 1
	}
	ctx.JSON(http.StatusOK, gin.H{
		"results":    members,
		"pagination": pagination{Page: page, PageSize: limit, Total: total},
	})
}

func (h *usersHandler) handleCountUsers(ctx *gin.Context) {
	n, err := h.usersService.CountUsers(ctx.Request.Context())
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *usersHandler) handleGetUser(ctx *gin.Context) {
	member, err := h.usersService.GetUserByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, member)
}

// handlePatchUser handles PATCH /users/:id. The path id wins over any id in
// the body.
func (h *usersHandler) handlePatchUser(ctx *gin.Context) {
	var member users.Member
	if err := ctx.ShouldBindJSON(&member); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	member.ID = ctx.Param("id")

	updated, err := h.usersService.UpdateUser(ctx.Request.Context(), &member)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": msgUserUpdated, "data": updated})
}

// handlePutProfile handles PUT /profile on behalf of the caller's token.
func (h *usersHandler) handlePutProfile(ctx *gin.Context) {
	caller := auth.FromContext(ctx.Request.Context())
	if caller == nil || caller.Token == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var profile users.Profile
	if err := ctx.ShouldBindJSON(&profile); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if caller.ID != "" {
		if profile.ID != "" && profile.ID != caller.ID {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another user's profile"})
			return
		}
		profile.ID = caller.ID
	}

	member, err := h.usersService.UpdateUserProfile(ctx.Request.Context(), caller.Token, profile)
	if err != nil {
		var perr *users.ProfileError
		if !errors.As(err, &perr) {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		ctx.JSON(profileErrorStatus(perr), gin.H{"errors": []*users.ProfileError{perr}})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": msgUserUpdated, "data": member})
}

func profileErrorStatus(perr *users.ProfileError) int {
	switch {
	case perr.Code == "400":
		return http.StatusBadRequest
	case perr.Code == "404":
		return http.StatusNotFound
	case perr.Code == "500":
		return http.StatusInternalServerError
	case perr.Name == users.NameAuthError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
