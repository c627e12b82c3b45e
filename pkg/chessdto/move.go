package chessdto

// MoveRequest asks the local-algorithm endpoint for one move.
type MoveRequest struct {
	Position string `json:"fen"`
	Depth    int    `json:"depth"`
	Mode     string `json:"mode"`
	Rollout  *int   `json:"rollout,omitempty"`
	Evaluate bool   `json:"evaluate"`
}

// ReferenceMoveRequest asks the reference engine endpoint for one move.
type ReferenceMoveRequest struct {
	Position  string `json:"fen"`
	TimeLimit int    `json:"time_limit"`
	Evaluate  bool   `json:"evaluate"`
}

// Evaluation is the optional move classification.
type Evaluation struct {
	Quality string   `json:"quality"`
	CPLoss  *float64 `json:"cp_loss"`
}

// MoveResponse carries either a move or a terminal signal. Error is set when
// the provider could not produce a move.
type MoveResponse struct {
	Move       string      `json:"move,omitempty"`
	From       string      `json:"from,omitempty"`
	To         string      `json:"to,omitempty"`
	Promotion  string      `json:"promotion,omitempty"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`

	GameOver bool   `json:"game_over,omitempty"`
	Result   string `json:"result,omitempty"`

	Error string `json:"error,omitempty"`
}
