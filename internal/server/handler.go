package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerbook/ledgerbook/internal/models"
	"github.com/ledgerbook/ledgerbook/internal/models/events"
)

// pageSize is the transaction listing page size.
const pageSize = 100

func (s *Server) getAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// replaceAccounts takes the client's full account collection and converges
// persisted state onto it.
func (s *Server) replaceAccounts(w http.ResponseWriter, r *http.Request) {
	var submitted []models.Account
	if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID := principal(r)
	accounts, err := s.ledger.ReplaceAccounts(r.Context(), userID, submitted)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(events.AccountsReconciled, userID, "")
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 0
	if raw := q.Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = parsed
	}
	filter := models.TransactionFilter{
		Description: q.Get("filterDescription"),
		SortColumn:  q.Get("sortColumn"),
		Offset:      page * pageSize,
		Limit:       pageSize,
	}
	switch strings.ToLower(q.Get("sortDirection")) {
	case "", "asc", "ascending":
	case "desc", "descending":
		filter.SortDescending = true
	default:
		http.Error(w, "invalid sortDirection", http.StatusBadRequest)
		return
	}
	if raw := q.Get("filterDate"); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Date = date
	}
	if raw := q.Get("filterTags"); raw != "" {
		filter.Tags = strings.Split(raw, ",")
	}
	transactions, err := s.ledger.Transactions(r.Context(), principal(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.TransactionByID(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// upsertTransaction creates or updates one transaction with its full
// posting collection.
func (s *Server) upsertTransaction(w http.ResponseWriter, r *http.Request) {
	var submitted models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID := principal(r)
	tx, err := s.ledger.UpsertTransaction(r.Context(), userID, submitted)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(events.TransactionUpserted, userID, tx.ID)
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID := principal(r)
	id := chi.URLParam(r, "id")
	tx, err := s.ledger.DeleteTransaction(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(events.TransactionDeleted, userID, id)
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) recalculate(w http.ResponseWriter, r *http.Request) {
	userID := principal(r)
	if err := s.ledger.Recalculate(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	s.publish(events.BalancesRecalculated, userID, "")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.ledger.Tags(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.ExportSnapshot(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) importSnapshot(w http.ResponseWriter, r *http.Request) {
	var snapshot models.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID := principal(r)
	if err := s.ledger.ImportSnapshot(r.Context(), userID, snapshot); err != nil {
		writeError(w, err)
		return
	}
	s.publish(events.SnapshotImported, userID, "")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
