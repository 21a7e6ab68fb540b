package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ledgerbook/ledgerbook/internal/ledger"
	"github.com/ledgerbook/ledgerbook/internal/models"
	"github.com/ledgerbook/ledgerbook/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(ledger.New(memory.NewStore()), nil, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, userID string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "" {
		req.Header.Set(principalHeader, userID)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp
}

func TestMissingPrincipalIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, ts, http.MethodGet, "/service/accounts", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d want=401", resp.StatusCode)
	}
}

func TestAccountAndTransactionFlow(t *testing.T) {
	ts := newTestServer(t)

	var accounts []models.Account
	resp := doJSON(t, ts, http.MethodPost, "/service/accounts", "u1",
		[]models.Account{{Name: "Cash", Currency: "USD"}}, &accounts)
	if resp.StatusCode != http.StatusOK || len(accounts) != 1 {
		t.Fatalf("replace accounts: status=%d accounts=%+v", resp.StatusCode, accounts)
	}

	payload := map[string]any{
		"description": "coffee",
		"date":        "2016-05-01",
		"type":        models.TransactionTypeExpenseIncome,
		"tags":        []string{"food"},
		"postings": []map[string]any{
			{"account_id": accounts[0].ID, "amount": "-3.50"},
		},
	}
	var tx models.Transaction
	resp = doJSON(t, ts, http.MethodPost, "/service/transactions", "u1", payload, &tx)
	if resp.StatusCode != http.StatusOK || tx.ID == "" {
		t.Fatalf("upsert transaction: status=%d tx=%+v", resp.StatusCode, tx)
	}

	resp = doJSON(t, ts, http.MethodGet, "/service/accounts", "u1", nil, &accounts)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get accounts: status=%d", resp.StatusCode)
	}
	if accounts[0].Balance.StringFixed(2) != "-3.50" {
		t.Fatalf("balance=%s want=-3.50", accounts[0].Balance)
	}

	var listed []models.Transaction
	resp = doJSON(t, ts, http.MethodGet, "/service/transactions?filterTags=food", "u1", nil, &listed)
	if resp.StatusCode != http.StatusOK || len(listed) != 1 {
		t.Fatalf("list transactions: status=%d listed=%+v", resp.StatusCode, listed)
	}

	var deleted models.Transaction
	resp = doJSON(t, ts, http.MethodDelete, "/service/transactions/transaction/"+tx.ID, "u1", nil, &deleted)
	if resp.StatusCode != http.StatusOK || deleted.ID != tx.ID {
		t.Fatalf("delete transaction: status=%d deleted=%+v", resp.StatusCode, deleted)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)

	// Seed one account with a posting so delete-blocking can trigger.
	var accounts []models.Account
	doJSON(t, ts, http.MethodPost, "/service/accounts", "u1",
		[]models.Account{{Name: "Cash", Currency: "USD"}}, &accounts)
	doJSON(t, ts, http.MethodPost, "/service/transactions", "u1", map[string]any{
		"description": "x",
		"date":        "2016-05-01",
		"type":        models.TransactionTypeExpenseIncome,
		"postings":    []map[string]any{{"account_id": accounts[0].ID, "amount": "1"}},
	}, nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"validation", http.MethodPost, "/service/transactions", map[string]any{
			"description": "bad", "date": "2016-05-01", "type": "nope",
			"postings": []map[string]any{{"account_id": accounts[0].ID, "amount": "1"}},
		}, http.StatusBadRequest},
		{"not found", http.MethodDelete, "/service/transactions/transaction/missing", nil, http.StatusNotFound},
		{"referential integrity", http.MethodPost, "/service/transactions", map[string]any{
			"description": "bad", "date": "2016-05-01", "type": models.TransactionTypeExpenseIncome,
			"postings": []map[string]any{{"account_id": "ghost", "amount": "1"}},
		}, http.StatusUnprocessableEntity},
		{"integrity conflict", http.MethodPost, "/service/accounts", []models.Account{}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, ts, tc.method, tc.path, "u1", tc.body, nil)
			if resp.StatusCode != tc.want {
				t.Fatalf("status=%d want=%d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestExportImportEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var accounts []models.Account
	doJSON(t, ts, http.MethodPost, "/service/accounts", "u1",
		[]models.Account{{Name: "Cash", Currency: "USD"}}, &accounts)
	doJSON(t, ts, http.MethodPost, "/service/transactions", "u1", map[string]any{
		"description": "seed",
		"date":        "2016-05-01",
		"type":        models.TransactionTypeExpenseIncome,
		"postings":    []map[string]any{{"account_id": accounts[0].ID, "amount": "7.25"}},
	}, nil)

	var snapshot models.Snapshot
	resp := doJSON(t, ts, http.MethodPost, "/service/export", "u1", nil, &snapshot)
	if resp.StatusCode != http.StatusOK || len(snapshot.Accounts) != 1 || len(snapshot.Transactions) != 1 {
		t.Fatalf("export: status=%d snapshot=%+v", resp.StatusCode, snapshot)
	}

	// Import the snapshot as another user and verify the copy.
	resp = doJSON(t, ts, http.MethodPost, "/service/import", "u2", snapshot, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: status=%d", resp.StatusCode)
	}
	var copied []models.Account
	doJSON(t, ts, http.MethodGet, "/service/accounts", "u2", nil, &copied)
	if len(copied) != 1 || copied[0].Balance.StringFixed(2) != "7.25" {
		t.Fatalf("imported accounts=%+v", copied)
	}
}

func TestListingPagination(t *testing.T) {
	ts := newTestServer(t)
	var accounts []models.Account
	doJSON(t, ts, http.MethodPost, "/service/accounts", "u1",
		[]models.Account{{Name: "Cash", Currency: "USD"}}, &accounts)
	for i := 0; i < 3; i++ {
		doJSON(t, ts, http.MethodPost, "/service/transactions", "u1", map[string]any{
			"description": fmt.Sprintf("tx %d", i),
			"date":        "2016-05-01",
			"type":        models.TransactionTypeExpenseIncome,
			"postings":    []map[string]any{{"account_id": accounts[0].ID, "amount": "1"}},
		}, nil)
	}
	var listed []models.Transaction
	resp := doJSON(t, ts, http.MethodGet, "/service/transactions?page=1", "u1", nil, &listed)
	if resp.StatusCode != http.StatusOK || len(listed) != 0 {
		t.Fatalf("page past the data should be empty, status=%d listed=%d", resp.StatusCode, len(listed))
	}

	for _, query := range []string{"page=-1", "page=abc", "sortDirection=sideways", "sortColumn=balance"} {
		resp := doJSON(t, ts, http.MethodGet, "/service/transactions?"+query, "u1", nil, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d want=400", query, resp.StatusCode)
		}
	}
}

func TestListingSortPassthrough(t *testing.T) {
	ts := newTestServer(t)
	var accounts []models.Account
	doJSON(t, ts, http.MethodPost, "/service/accounts", "u1",
		[]models.Account{{Name: "Cash", Currency: "USD"}}, &accounts)
	for _, item := range []struct{ description, date string }{
		{"zebra", "2016-01-01"},
		{"apple", "2016-03-01"},
	} {
		doJSON(t, ts, http.MethodPost, "/service/transactions", "u1", map[string]any{
			"description": item.description,
			"date":        item.date,
			"type":        models.TransactionTypeExpenseIncome,
			"postings":    []map[string]any{{"account_id": accounts[0].ID, "amount": "1"}},
		}, nil)
	}

	var listed []models.Transaction
	resp := doJSON(t, ts, http.MethodGet,
		"/service/transactions?sortColumn=description&sortDirection=descending", "u1", nil, &listed)
	if resp.StatusCode != http.StatusOK || len(listed) != 2 {
		t.Fatalf("status=%d listed=%d", resp.StatusCode, len(listed))
	}
	if listed[0].Description != "zebra" || listed[1].Description != "apple" {
		t.Fatalf("descending description order wrong: %q, %q", listed[0].Description, listed[1].Description)
	}
}
