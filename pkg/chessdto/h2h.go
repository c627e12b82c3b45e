package chessdto

// HeadToHeadRequest starts a full server-side game between two algorithms.
type HeadToHeadRequest struct {
	WhiteMode    string `json:"white_mode"`
	WhiteDepth   int    `json:"white_depth"`
	WhiteRollout *int   `json:"white_rollout"`
	BlackMode    string `json:"black_mode"`
	BlackDepth   int    `json:"black_depth"`
	BlackRollout *int   `json:"black_rollout"`
}

type SideSummary struct {
	Mode      string  `json:"mode"`
	Depth     int     `json:"depth"`
	Rollout   *int    `json:"rollout"`
	AvgTime   float64 `json:"avg_time"`
	TotalTime float64 `json:"total_time"`
}

type HeadToHeadResult struct {
	Winner        string      `json:"winner"`
	TotalMoves    int         `json:"total_moves"`
	Termination   string      `json:"termination"`
	FinalPosition string      `json:"final_position"`
	White         SideSummary `json:"white"`
	Black         SideSummary `json:"black"`
}

type HeadToHeadResponse struct {
	Success bool              `json:"success"`
	Result  *HeadToHeadResult `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}
