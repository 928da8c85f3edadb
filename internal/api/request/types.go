package request

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	OwnerUserID string `json:"owner_user_id"`
}
