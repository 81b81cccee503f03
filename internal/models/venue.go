package models

// Venue is the place a concert happens.
type Venue struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Address  string   `json:"address,omitempty"`
	City     string   `json:"city,omitempty"`
	Capacity *int     `json:"capacity,omitempty"`
	Images   []string `json:"images,omitempty"`
	Status   string   `json:"status,omitempty"`
}
