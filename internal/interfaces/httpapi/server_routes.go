package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leagues/{leagueID}/teams", handler.ListTeamsByLeague)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/teams/{teamID}", handler.GetTeamByLeague)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/fixtures", handler.ListFixturesByLeague)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedRoomRoutes(mux, handler, verifier)
	registerAuthorizedPickRoutes(mux, handler, verifier)
	registerAuthorizedDealRoutes(mux, handler, verifier)
}

func registerAuthorizedRoomRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/rooms", RequireAuth(verifier, http.HandlerFunc(handler.CreateRoom)))
	mux.Handle("GET /v1/rooms", RequireAuth(verifier, http.HandlerFunc(handler.ListRooms)))
	mux.Handle("POST /v1/rooms/join", RequireAuth(verifier, http.HandlerFunc(handler.JoinRoom)))
	mux.Handle("GET /v1/rooms/{roomID}", RequireAuth(verifier, http.HandlerFunc(handler.GetRoom)))
	mux.Handle("GET /v1/rooms/{roomID}/members", RequireAuth(verifier, http.HandlerFunc(handler.ListRoomMembers)))
	mux.Handle("POST /v1/rooms/{roomID}/start", RequireAuth(verifier, http.HandlerFunc(handler.StartRoom)))
	mux.Handle("POST /v1/rooms/{roomID}/invite-code", RequireAuth(verifier, http.HandlerFunc(handler.RegenerateInviteCode)))
	mux.Handle("DELETE /v1/rooms/{roomID}", RequireAuth(verifier, http.HandlerFunc(handler.ArchiveRoom)))
	mux.Handle("GET /v1/rooms/{roomID}/timeline", RequireAuth(verifier, http.HandlerFunc(handler.ListRoomTimeline)))
}

func registerAuthorizedPickRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("PUT /v1/rooms/{roomID}/picks", RequireAuth(verifier, http.HandlerFunc(handler.SubmitPick)))
	mux.Handle("GET /v1/rooms/{roomID}/picks/{gameweek}", RequireAuth(verifier, http.HandlerFunc(handler.GetMyPick)))
	mux.Handle("GET /v1/rooms/{roomID}/gameweeks/{gameweek}/lock", RequireAuth(verifier, http.HandlerFunc(handler.GetLockTime)))
	mux.Handle("GET /v1/rooms/{roomID}/used-teams", RequireAuth(verifier, http.HandlerFunc(handler.ListMyUsedTeams)))
}

func registerAuthorizedDealRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/rooms/{roomID}/deals", RequireAuth(verifier, http.HandlerFunc(handler.ProposeDeal)))
	mux.Handle("GET /v1/rooms/{roomID}/deals/{proposalID}", RequireAuth(verifier, http.HandlerFunc(handler.GetDeal)))
	mux.Handle("POST /v1/rooms/{roomID}/deals/{proposalID}/votes", RequireAuth(verifier, http.HandlerFunc(handler.VoteOnDeal)))
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/lock-sweep", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLockSweepJob)))
	mux.Handle("POST /v1/internal/jobs/resolve-sweep", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunResolveSweepJob)))
	mux.Handle("POST /v1/internal/jobs/expire-sweep", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunExpireSweepJob)))
	mux.Handle("POST /v1/internal/jobs/pull-results", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFeedPullJob)))
	mux.Handle("POST /v1/internal/results", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RecordFixtureOutcome)))
	mux.Handle("POST /v1/internal/results/override", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.OverrideFixtureOutcome)))
	mux.Handle("POST /v1/internal/rooms/{roomID}/lock", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.LockRoomGameweek)))
	mux.Handle("POST /v1/internal/rooms/{roomID}/resolve", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ResolveRoomGameweek)))
}
