package domain

// Config is the contract-level metadata written once at initialization.
//
// AdminAddress is recorded but no operation checks callers against it.
type Config struct {
	AdminAddress string `json:"admin_address"`
}

// ContractInfo identifies the code that initialized the store.
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}
