package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StreamRewardsSSE streams real-time reward events for the authenticated user.
// Fed from a bus subscription rather than DB polling: the award pipeline
// publishes, connected clients see the event within the flush.
func StreamRewardsSSE(bus *EventBus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		// SSE headers
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		events, cancel := bus.Subscribe(userID)
		done := c.Context().Done()

		// Use fasthttp stream writer (THIS replaces Flush)
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()

			keepalive := time.NewTicker(15 * time.Second)
			defer keepalive.Stop()

			// Initial keepalive (comment event)
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case evt, ok := <-events:
					if !ok {
						return
					}
					payload, err := json.Marshal(evt)
					if err != nil {
						log.Printf("SSE marshal error for user %s: %v", userID, err)
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}

				case <-keepalive.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}

				case <-done:
					// Client closed connection
					return
				}
			}
		})

		return nil
	}
}
