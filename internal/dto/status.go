package dto

// StatusResponse carries the status line after an operator action.
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// PingResponse is the outcome of a liveness check.
type PingResponse struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
}
