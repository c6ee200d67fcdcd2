package domain

// BlockInfo is the block metadata of the call being executed.
type BlockInfo struct {
	Height  uint64 `json:"height"`
	Time    uint64 `json:"time"` // seconds since epoch
	ChainID string `json:"chain_id"`
}

// Env is the execution environment handed to every operation.
type Env struct {
	Block           BlockInfo `json:"block"`
	Sender          HumanAddr `json:"sender"`
	SentFunds       []Coin    `json:"sent_funds,omitempty"`
	ContractAddress HumanAddr `json:"contract_address"`
}
