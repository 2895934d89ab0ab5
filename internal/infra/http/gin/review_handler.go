package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	reviewsapp "stayscape/internal/app/handlers/reviews"
)

type ReviewsHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h ReviewsHandler) Submit(c *gin.Context) {
	var req submitReviewRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := reviewsapp.SubmitReviewCommand{
		ListingID: c.Param("id"),
		AuthorID:  actorID(c),
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	result, err := commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReviewsHandler) Delete(c *gin.Context) {
	cmd := reviewsapp.DeleteReviewCommand{
		ListingID: c.Param("id"),
		ReviewID:  c.Param("reviewId"),
		ActorIDV:  actorID(c),
	}
	if _, err := commands.Dispatch[reviewsapp.DeleteReviewCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ ReviewsHTTP = ReviewsHandler{}
