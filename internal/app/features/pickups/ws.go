// internal/app/features/pickups/ws.go
package pickups

import (
	"encoding/json"
	"net/http"

	"maktabhub/internal/app/features/shared"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/hub"
	"maktabhub/internal/app/system/metrics"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type inboundFrame struct {
	Type string `json:"type,omitempty"`
	Body string `json:"body"`
}

// HandleChat handles GET /api/pickups/{id}/ws: the per-request chat socket.
// Every inbound frame is persisted before fan-out, so a reconnecting client
// can recover the thread from HandleMessages.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	senderID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	requestID := chi.URLParam(r, "id")
	if _, err := h.Pickups.GetRequest(r.Context(), requestID); err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	room := h.Hub.GetOrCreateRoom(requestID)
	client := &hub.Client{Conn: conn, UserID: u.ID, UserName: u.Name, Role: u.Role}
	room.AddClient(client)
	defer func() {
		room.RemoveClient(conn)
		h.Hub.RemoveRoomIfEmpty(requestID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Log.Warn("pickup chat read failed",
					zap.String("request", requestID), zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		// Typing indicators relay to the other participants and are never
		// persisted.
		if frame.Type == "typing" {
			ev, _ := json.Marshal(hub.Event{Type: "typing", Sender: u.ID})
			room.BroadcastFrom(conn, ev, h.Log)
			continue
		}

		stored, err := h.Pickups.AddMessage(r.Context(), models.PickupMessage{
			RequestID:  requestID,
			SenderID:   senderID,
			SenderName: u.Name,
			Body:       frame.Body,
		})
		if err != nil {
			// Tell only the sender; the message was not stored. The write
			// goes through the client so it holds the same lock as hub
			// broadcasts targeting this connection.
			payload, _ := json.Marshal(map[string]string{"error": err.Error()})
			ev, _ := json.Marshal(hub.Event{Type: "reject", Payload: payload})
			if werr := client.Send(ev); werr != nil {
				return
			}
			continue
		}

		metrics.PickupMessages.Inc()
		payload, err := json.Marshal(stored)
		if err != nil {
			h.Log.Error("marshal pickup message", zap.Error(err))
			continue
		}
		h.Hub.Broadcast(requestID, hub.Event{
			Type:    "message",
			Payload: payload,
			Sender:  u.ID,
		})
	}
}
