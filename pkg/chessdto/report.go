package chessdto

// MoveEntry is one move of a submitted game log.
type MoveEntry struct {
	Ply     int      `json:"ply"`
	Side    string   `json:"side"`
	SAN     string   `json:"san"`
	UCI     string   `json:"uci,omitempty"`
	Quality string   `json:"quality,omitempty"`
	CPLoss  *float64 `json:"cp_loss"`
}

// Counters are the aggregate tallies attached to a log or chart request.
type Counters struct {
	Wins       map[string]int `json:"wins"`
	Draws      int            `json:"draws"`
	Completed  int            `json:"completed"`
	Requested  int            `json:"requested"`
	Excellent  int            `json:"excellent"`
	Good       int            `json:"good"`
	Inaccuracy int            `json:"inaccuracy"`
	Mistake    int            `json:"mistake"`
	Blunder    int            `json:"blunder"`
}

type SaveLogRequest struct {
	GameID         string      `json:"game_id"`
	AlgorithmLabel string      `json:"algorithm_label"`
	Depth          int         `json:"depth"`
	Result         string      `json:"result"`
	Moves          []MoveEntry `json:"moves"`
	Counters       Counters    `json:"aggregate_counters"`
}

type SaveLogResponse struct {
	Filename string `json:"filename"`
}

// QualityCounts is one agent's quality tally in a chart request.
type QualityCounts struct {
	Agent      string  `json:"agent"`
	Excellent  int     `json:"excellent"`
	Good       int     `json:"good"`
	Inaccuracy int     `json:"inaccuracy"`
	Mistake    int     `json:"mistake"`
	Blunder    int     `json:"blunder"`
	ACPL       float64 `json:"acpl"`
	Accuracy   float64 `json:"accuracy"`
}

type ChartRequest struct {
	AlgorithmLabel string          `json:"algorithm_label"`
	Wins           map[string]int  `json:"wins"`
	Draws          int             `json:"draws"`
	Qualities      []QualityCounts `json:"qualities"`
}

type ChartResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
