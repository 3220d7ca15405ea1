package entity

type Athlete struct {
	ID           string `json:"id" firestore:"id"`
	Name         string `json:"name" firestore:"name"`
	Team         string `json:"team,omitempty" firestore:"team,omitempty"`
	Sport        string `json:"sport,omitempty" firestore:"sport,omitempty"`
	CurrentPrice Money  `json:"current_price" firestore:"currentPrice"`
}
