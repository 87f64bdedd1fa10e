package models

// DeckStats holds aggregate counts for one deck.
type DeckStats struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Due       int `json:"due"`
	Favorites int `json:"favorites"`
	Easy      int `json:"easy"`
	Medium    int `json:"medium"`
	Hard      int `json:"hard"`
}
