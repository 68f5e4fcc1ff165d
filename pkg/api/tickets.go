package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/google/uuid"

	"agentdesk/pkg/logger"
	"agentdesk/pkg/models"
	"agentdesk/pkg/store"
	"agentdesk/pkg/triage"
)

// RegisterTickets registers ticket intake, triage and audit routes.
func RegisterTickets(r *mux.Router, eng *triage.Engine) {
	r.HandleFunc("/tenants/{tenantID}/tickets", createTicket).Methods(http.MethodPost)
	r.HandleFunc("/tenants/{tenantID}/tickets/{ticketID}", getTicket).Methods(http.MethodGet)
	r.HandleFunc("/tenants/{tenantID}/tickets/{ticketID}/triage", triageTicket(eng)).Methods(http.MethodPost)
	r.HandleFunc("/tenants/{tenantID}/tickets/{ticketID}/runs", listRuns(eng)).Methods(http.MethodGet)
	r.HandleFunc("/tenants/{tenantID}/tickets/{ticketID}/replies/{replyID}", getReply).Methods(http.MethodGet)
}

// createTicket handles POST /v1/tenants/{tenantID}/tickets: intake of a new
// support request.
func createTicket(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenantID"]
	if _, err := store.GetTenant(tenantID); err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var t models.Ticket
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if t.Subject == "" && t.Body == "" {
		writeError(w, http.StatusBadRequest, "ticket needs a subject or body")
		return
	}
	t.TenantID = tenantID
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = models.TicketOpen
	t.AITriaged = false
	t.Draft = nil
	now := time.Now().UTC().UnixNano()
	t.CreatedTS = now
	t.UpdatedTS = now
	if err := store.SaveTicket(t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("ticket_created", "tenant", tenantID, "ticket", t.ID, "channel", t.Channel)
	writeJSON(w, http.StatusCreated, t)
}

// getTicket handles GET /v1/tenants/{tenantID}/tickets/{ticketID}.
func getTicket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := store.GetTicket(vars["tenantID"], vars["ticketID"])
	if err != nil {
		if errors.Is(err, store.ErrTicketNotFound) {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// triageTicket handles POST /v1/tenants/{tenantID}/tickets/{ticketID}/triage.
// Synchronous: the response carries the finished run, the updated ticket and
// the drafted reply.
func triageTicket(eng *triage.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		var body struct {
			InitiatorID string `json:"initiator_id"`
		}
		// body is optional
		_ = json.NewDecoder(r.Body).Decode(&body)

		res, err := eng.RunTriage(r.Context(), vars["tenantID"], vars["ticketID"], body.InitiatorID)
		if err != nil {
			if errors.Is(err, store.ErrTicketNotFound) || errors.Is(err, store.ErrTenantNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// listRuns handles GET /v1/tenants/{tenantID}/tickets/{ticketID}/runs: the
// audit trail of every triage invocation with its per-stage steps.
func listRuns(eng *triage.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		runs, err := eng.ListRuns(r.Context(), vars["tenantID"], vars["ticketID"])
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Runs []triage.RunWithSteps `json:"runs"`
		}{Runs: runs})
	}
}

// getReply handles GET .../replies/{replyID}, mainly for checking delivery
// state of an autonomous send.
func getReply(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reply, err := store.GetReply(vars["replyID"])
	if err != nil {
		if errors.Is(err, store.ErrReplyNotFound) {
			writeError(w, http.StatusNotFound, "reply not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reply.TenantID != vars["tenantID"] || reply.TicketID != vars["ticketID"] {
		writeError(w, http.StatusNotFound, "reply not found")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
