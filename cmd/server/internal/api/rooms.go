package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/livemeet/livemeet/cmd/server/internal/room"
)

// HandleEndRoom closes a room on an explicit end-meeting request.
// POST /api/v1/rooms/:room_id/end
func (s *Server) HandleEndRoom(c *gin.Context) {
	roomID := c.Param("room_id")

	if err := s.registry.End(roomID); err != nil {
		switch {
		case errors.Is(err, room.ErrRoomClosed):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "meeting already ended",
			})
		case errors.Is(err, room.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "room not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"room_id": roomID, "state": room.StateClosed},
	})
}

// HandleLiveView serves the one-shot live snapshot of a room. Unknown or
// closed rooms report an inactive state rather than an error.
// GET /api/v1/rooms/:room_id/live
func (s *Server) HandleLiveView(c *gin.Context) {
	roomID := c.Param("room_id")

	r := s.manager.Get(roomID)
	if r == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"active": false,
				"status": "not active",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    r.LiveState(liveViewLines),
	})
}

// HandleListRooms lists active rooms for operators.
// GET /api/v1/rooms
func (s *Server) HandleListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    s.manager.ListActive(),
	})
}
