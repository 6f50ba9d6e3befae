package notify

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the live event feed. Clients subscribe to one
// tour and receive its publish and completion events as JSON frames.
func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:tourID", websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("tourID"))
		defer hub.Unregister(client)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}))
}
