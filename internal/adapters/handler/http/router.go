package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(contractHandler *ContractHandler, pollHandler *PollHandler, voteHandler *VoteHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/contract", func(r chi.Router) {
			r.Post("/instantiate", contractHandler.Instantiate)
			r.Post("/execute", contractHandler.Execute)
			r.Post("/query", contractHandler.Query)
		})

		r.Get("/config", pollHandler.GetConfig)

		r.Route("/polls", func(r chi.Router) {
			r.Post("/", pollHandler.CreatePoll)
			r.Get("/{id}", pollHandler.GetPoll)
			r.Get("/{id}/tally", pollHandler.GetTally)
			r.Post("/{id}/votes", voteHandler.VoteOnPoll)
		})
	})

	return r
}
