package http

import (
	"net/http"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

// ContractHandler exposes the raw contract entry points. Bodies are the
// tagged-union messages, e.g. {"create_poll":{"question":"..."}}.
type ContractHandler struct {
	contract ports.Contract
}

func NewContractHandler(contract ports.Contract) *ContractHandler {
	return &ContractHandler{
		contract: contract,
	}
}

// Instantiate godoc
// @Summary      Initializes the contract
// @Description  Validates and stores the admin address and resets the poll id counter. Only the first call succeeds.
// @Tags         contract
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      409
// @Router       /contract/instantiate [post]
func (h *ContractHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	var msg ports.InstantiateMsg
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.contract.Instantiate(r.Context(), msg)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Execute godoc
// @Summary      Runs a command
// @Description  Accepts {"create_poll":{...}} or {"vote":{...}}.
// @Tags         contract
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400
// @Failure      404
// @Router       /contract/execute [post]
func (h *ContractHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var msg ports.ExecuteMsg
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.contract.Execute(r.Context(), msg)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Query godoc
// @Summary      Runs a read-only query
// @Description  Accepts {"get_tally":{...}}, {"get_poll":{...}} or {"get_config":{}}.
// @Tags         contract
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400
// @Failure      404
// @Router       /contract/query [post]
func (h *ContractHandler) Query(w http.ResponseWriter, r *http.Request) {
	var msg ports.QueryMsg
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.contract.Query(r.Context(), msg)
	if err != nil {
		writeError(w, err)
		return
	}

	writeRawJSON(w, http.StatusOK, result)
}
