package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listUsers(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	users, stats, err := h.users.List(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   resp,
		"stats":   userStatsToResponse(stats),
		"pagination": PaginationResponse{
			Limit:  q.Limit,
			Offset: q.Offset,
			Total:  len(users),
		},
	})
}

// activateUser re-enables an account and clears its failed login counter.
func (h *Handler) activateUser(c *gin.Context) {
	username := c.Param("username")
	if err := h.users.Activate(c.Request.Context(), username); err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("username", username).Info("account activated")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user activated"})
}

func (h *Handler) deactivateUser(c *gin.Context) {
	username := c.Param("username")
	if err := h.users.Deactivate(c.Request.Context(), username); err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("username", username).Info("account deactivated")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "user deactivated"})
}
