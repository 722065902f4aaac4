package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParsePathPositiveInt64(t *testing.T) {
	mux := http.NewServeMux()
	var (
		value int64
		ok    bool
	)
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		value, ok = parsePathPositiveInt64(w, r, "id", "workspace id")
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	if !ok || value != 42 {
		t.Fatalf("expected 42, got %d (ok=%v)", value, ok)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected no error response, got %d", rec.Code)
	}

	for _, raw := range []string{"abc", "0", "-1", "9223372036854775808"} {
		t.Run(raw, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+raw, nil))
			if ok {
				t.Fatalf("expected %q to be rejected", raw)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] != "invalid workspace id" {
				t.Fatalf("unexpected error message %q", body["error"])
			}
		})
	}
}

func TestEncodeJSONMatchesResponseBody(t *testing.T) {
	data := map[string]any{"path": "a<b>/", "n": 1}
	body, err := encodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	jsonResponse(rec, http.StatusCreated, data)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if rec.Body.String() != string(body) {
		t.Fatalf("response body %q differs from encoded %q", rec.Body.String(), body)
	}
	if want := `{"n":1,"path":"a<b>/"}` + "\n"; string(body) != want {
		t.Fatalf("encoded = %q, want %q", body, want)
	}
}
