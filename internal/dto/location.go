package dto

// LocationResponse is the outcome of an operator-initiated resolution.
type LocationResponse struct {
	Location string `json:"location"`
}

// PositionRequest carries device coordinates pushed by the operator.
type PositionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Denied    bool     `json:"denied,omitempty"`
}
