package model

// MatchItem is one token matched by one atom
type MatchItem struct {
	TokenIndex int `json:"token"`
	AtomIndex  int `json:"atom"`
	Score      int `json:"score"`
}

// RuleMatch is one successful scan of a rule
type RuleMatch struct {
	RuleID    string      `json:"rule_id"`
	RuleIndex int         `json:"rule_index"` // Position of the rule in the applied rule list
	Start     int         `json:"start"`      // Token index where the scan started
	End       int         `json:"end"`        // Token index just past the matched span
	Priority  int         `json:"priority"`   // Rule priority plus the sum of item scores
	Items     []MatchItem `json:"items"`
}
