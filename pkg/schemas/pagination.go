package schemas

// Paginated is the envelope for list endpoints.
type Paginated[T any] struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Data  []T `json:"data"`
}
