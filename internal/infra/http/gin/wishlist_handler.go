package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	meapp "stayscape/internal/app/handlers/me"
	"stayscape/internal/app/queries"
)

type WishlistHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h WishlistHandler) List(c *gin.Context) {
	result, err := queries.Ask[meapp.ListWishlistQuery, []dto.Listing](c.Request.Context(), h.Queries, meapp.ListWishlistQuery{UserID: actorID(c)})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

// Toggle adds the listing to the wishlist or removes it when already present.
func (h WishlistHandler) Toggle(c *gin.Context) {
	cmd := meapp.ToggleWishlistCommand{UserID: actorID(c), ListingID: c.Param("id")}
	result, err := commands.Dispatch[meapp.ToggleWishlistCommand, dto.WishlistToggle](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ WishlistHTTP = WishlistHandler{}
