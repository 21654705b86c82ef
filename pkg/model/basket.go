package model

import "time"

type Basket struct {
	Code         string    `json:"basket_code"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasParticipant reports whether name already joined the basket.
func (b *Basket) HasParticipant(name string) bool {
	for _, p := range b.Participants {
		if p == name {
			return true
		}
	}
	return false
}

type CreateBasketRequest struct {
	Name string `json:"name,omitempty" validate:"omitempty,max=100"`
}

type CreateBasketResponse struct {
	Code      string    `json:"basket_code"`
	CreatedAt time.Time `json:"created_at"`
}

type JoinBasketRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type JoinBasketResponse struct {
	Code string `json:"basket_code"`
}
