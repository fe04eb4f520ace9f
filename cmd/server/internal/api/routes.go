package api

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the websocket and room endpoints.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", s.HandleWS)

	v1 := r.Group("/api/v1")
	v1.POST("/rooms/:room_id/end", s.HandleEndRoom)
	v1.GET("/rooms/:room_id/live", s.HandleLiveView)
	v1.GET("/rooms", s.HandleListRooms)
}
