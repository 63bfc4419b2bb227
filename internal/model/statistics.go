package model

// AgentCounts summarises the agent registry.
type AgentCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// QuerySuccessCounts is a success tally over a set of queries.
type QuerySuccessCounts struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
}
