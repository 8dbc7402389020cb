package http

import (
	"net/http"

	"github.com/vncsmyrnk/tally/internal/core/ports"
)

type PollHandler struct {
	contract ports.Contract
}

func NewPollHandler(contract ports.Contract) *PollHandler {
	return &PollHandler{
		contract: contract,
	}
}

type createPollRequest struct {
	Question string `json:"question"`
}

// CreatePoll godoc
// @Summary      Creates a yes/no poll
// @Description  Returns the new poll id in data.poll_id. Ids start at 0 and have no gaps.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      409
// @Router       /polls [post]
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.contract.Execute(r.Context(), ports.ExecuteMsg{
		CreatePoll: &ports.CreatePollMsg{Question: req.Question},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetPoll godoc
// @Summary      Returns a poll with its question and tally
// @Tags         polls
// @Produce      json
// @Param        id   path      int  true  "Poll ID"
// @Success      200
// @Failure      400
// @Failure      404
// @Router       /polls/{id} [get]
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	h.query(w, r, ports.QueryMsg{GetPoll: &ports.GetPollMsg{PollID: id}})
}

// GetTally godoc
// @Summary      Returns the vote tally of a poll
// @Tags         polls
// @Produce      json
// @Param        id   path      int  true  "Poll ID"
// @Success      200
// @Failure      404
// @Router       /polls/{id}/tally [get]
func (h *PollHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	h.query(w, r, ports.QueryMsg{GetTally: &ports.GetTallyMsg{PollID: id}})
}

// GetConfig godoc
// @Summary      Returns the contract config
// @Tags         contract
// @Produce      json
// @Success      200
// @Failure      409
// @Router       /config [get]
func (h *PollHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, ports.QueryMsg{GetConfig: &ports.GetConfigMsg{}})
}

func (h *PollHandler) query(w http.ResponseWriter, r *http.Request, msg ports.QueryMsg) {
	result, err := h.contract.Query(r.Context(), msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, result)
}
