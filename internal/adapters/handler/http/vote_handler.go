package http

import (
	"net/http"

	"github.com/vncsmyrnk/tally/internal/core/domain"
	"github.com/vncsmyrnk/tally/internal/core/ports"
)

type VoteHandler struct {
	contract ports.Contract
}

func NewVoteHandler(contract ports.Contract) *VoteHandler {
	return &VoteHandler{
		contract: contract,
	}
}

type voteRequest struct {
	VoteType domain.VoteChoice `json:"vote_type"`
}

// VoteOnPoll godoc
// @Summary      Casts a yes/no vote
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        id   path      int  true  "Poll ID"
// @Success      200
// @Failure      400
// @Failure      404
// @Router       /polls/{id}/votes [post]
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.contract.Execute(r.Context(), ports.ExecuteMsg{
		Vote: &ports.VoteMsg{PollID: pollID, VoteType: req.VoteType},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
