package routes

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/padi-pay/padi_pay/internal/notify"
)

type subscribeMessage struct {
	Reference string `json:"tx_ref"`
}

// RegisterRealtimeRoutes wires the websocket endpoint observers use to
// follow transaction outcomes. A client subscribes by sending the
// reference it cares about; every settlement for that reference is pushed
// to it until it disconnects.
func RegisterRealtimeRoutes(app *fiber.App, rooms *notify.Rooms, logger *slog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/wallet", websocket.New(func(conn *websocket.Conn) {
		joined := make(map[string]struct{})
		defer func() {
			for room := range joined {
				rooms.Leave(room, conn)
			}
			conn.Close()
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg subscribeMessage
			if err := json.Unmarshal(raw, &msg); err != nil || msg.Reference == "" {
				logger.Debug("ignoring malformed subscribe message")
				continue
			}
			if _, ok := joined[msg.Reference]; ok {
				continue
			}
			joined[msg.Reference] = struct{}{}
			rooms.Join(msg.Reference, conn)
			logger.Debug("observer joined", "room", msg.Reference)
		}
	}))
}
