package notifications

import (
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
)

// Event is what producers hand to the dispatcher.
type Event struct {
	Kind     enums.NotificationKind
	EntityID *uuid.UUID
	Title    string
	Message  string
}

// View is the client-facing shape of an inbox entry.
type View struct {
	ID          uuid.UUID              `json:"id"`
	RecipientID uuid.UUID              `json:"recipient_id"`
	EntityID    *uuid.UUID             `json:"entity_id,omitempty"`
	Kind        enums.NotificationKind `json:"kind"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Read        bool                   `json:"read"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewView maps a stored notification to its response shape.
func NewView(n models.Notification) View {
	return View{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		EntityID:    n.EntityID,
		Kind:        n.Kind,
		Title:       n.Title,
		Message:     n.Message,
		Read:        n.ReadAt != nil,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
}

// pushMessage is the frame written to live WebSocket connections.
type pushMessage struct {
	Type         string `json:"type"`
	Notification View   `json:"notification"`
}
