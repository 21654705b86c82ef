// Package events emits a record of basket activity. Events are informational:
// clients never receive them and stay in sync by polling.
package events

import (
	"context"
	"time"

	"sharebasket/pkg/model"
)

const (
	TypeBasketCreated     = "basket_created"
	TypeParticipantJoined = "participant_joined"
	TypeItemAdded         = "item_added"
	TypeItemDeleted       = "item_deleted"

	SchemaVersion = "1"
)

type Event struct {
	Type        string      `json:"type"`
	BasketCode  string      `json:"basket_code"`
	Participant string      `json:"participant,omitempty"`
	ItemID      int64       `json:"item_id,omitempty"`
	Item        *model.Item `json:"item,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
	RequestID   string      `json:"-"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

func BasketCreated(code, creator string) Event {
	return Event{Type: TypeBasketCreated, BasketCode: code, Participant: creator, OccurredAt: time.Now().UTC()}
}

func ParticipantJoined(code, name string) Event {
	return Event{Type: TypeParticipantJoined, BasketCode: code, Participant: name, OccurredAt: time.Now().UTC()}
}

func ItemAdded(item *model.Item) Event {
	return Event{
		Type:        TypeItemAdded,
		BasketCode:  item.BasketCode,
		Participant: item.AddedBy,
		ItemID:      item.ID,
		Item:        item,
		OccurredAt:  time.Now().UTC(),
	}
}

func ItemDeleted(code string, id int64) Event {
	return Event{Type: TypeItemDeleted, BasketCode: code, ItemID: id, OccurredAt: time.Now().UTC()}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                        { return nil }
