package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayscape/internal/app/dto"
	meapp "stayscape/internal/app/handlers/me"
	"stayscape/internal/app/queries"
)

type UsersHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Profile is public; a signed-in owner also sees their recent bookings.
func (h UsersHandler) Profile(c *gin.Context) {
	q := meapp.UserProfileQuery{UserID: c.Param("id"), ViewerID: actorID(c)}
	result, err := queries.Ask[meapp.UserProfileQuery, dto.PublicProfile](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ UsersHTTP = UsersHandler{}
