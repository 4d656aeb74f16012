package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nftloop/tradeloop-engine/internal/api"
	"github.com/nftloop/tradeloop-engine/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamTenantEvents upgrades the request to a websocket connection and
// forwards every event published for tenantId until the subscription is
// dropped (subscriber_lagged) or the client disconnects. One goroutine per
// connection, matching the teacher's websocket.go per-client pattern.
func streamTenantEvents(registry *api.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := models.TenantId(c.Param("tenantId"))
		sub, err := registry.Subscribe(tenantId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[gateway] websocket upgrade failed: %v", err)
			sub.Close()
			return
		}
		defer sub.Close()
		defer conn.Close()

		// Reader goroutine exists only to notice the client going away —
		// this stream is push-only.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case event, ok := <-sub.Events:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					log.Printf("[gateway] websocket write error: %v", err)
					return
				}
				if event.Type == models.EventSubscriberLagged {
					return
				}
			}
		}
	}
}
