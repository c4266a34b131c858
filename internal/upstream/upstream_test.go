package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

var gamesDesc = Descriptor{
	Resource:          "games",
	Field:             []string{"response", "games"},
	ForbiddenStatuses: []int{401, 403},
}

var achDesc = Descriptor{
	Resource:          "achievements",
	Field:             []string{"playerstats", "achievements"},
	EmptyStatuses:     []int{400},
	ForbiddenStatuses: []int{401, 403},
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		desc   Descriptor
		status int
		body   string
		want   Kind
	}{
		{
			name:   "200 with expected field",
			desc:   gamesDesc,
			status: 200,
			body:   `{"response":{"game_count":1,"games":[{"appid":440}]}}`,
			want:   Success,
		},
		{
			name:   "200 missing field reads as empty",
			desc:   gamesDesc,
			status: 200,
			body:   `{"response":{}}`,
			want:   Empty,
		},
		{
			name:   "200 with null field reads as empty",
			desc:   gamesDesc,
			status: 200,
			body:   `{"response":{"games":null}}`,
			want:   Empty,
		},
		{
			name:   "400 is empty only for achievements",
			desc:   achDesc,
			status: 400,
			body:   `{"playerstats":{"error":"Requested app has no stats","success":false}}`,
			want:   Empty,
		},
		{
			name:   "400 is an error elsewhere",
			desc:   gamesDesc,
			status: 400,
			body:   `{"response":{}}`,
			want:   Error,
		},
		{
			name:   "403 reads as forbidden",
			desc:   achDesc,
			status: 403,
			body:   `{"playerstats":{"error":"Profile is not public","success":false}}`,
			want:   Forbidden,
		},
		{
			name:   "401 reads as forbidden",
			desc:   gamesDesc,
			status: 401,
			body:   `{}`,
			want:   Forbidden,
		},
		{
			name:   "500 is an error",
			desc:   gamesDesc,
			status: 500,
			body:   `{}`,
			want:   Error,
		},
		{
			name:   "invalid JSON is an error even on 200",
			desc:   gamesDesc,
			status: 200,
			body:   `<html>upstream exploded</html>`,
			want:   Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.desc, tt.status, []byte(tt.body))
			if got.Kind != tt.want {
				t.Errorf("Classify kind = %v, want %v", got.Kind, tt.want)
			}
			if tt.want == Error && got.Err == nil {
				t.Error("expected Err to be set for Error outcome")
			}
			if tt.want != Error && got.Err != nil {
				t.Errorf("unexpected Err: %v", got.Err)
			}
		})
	}
}

func TestFetchSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"games":[]}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	client := resty.New().SetTimeout(2 * time.Second)
	res := Fetch(context.Background(), client, ts.URL, gamesDesc)
	if res.Kind != Success {
		t.Fatalf("kind = %v, want Success (err: %v)", res.Kind, res.Err)
	}
	if res.StatusCode != 200 {
		t.Errorf("status = %d", res.StatusCode)
	}
}

func TestFetchConnectionFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	client := resty.New().SetTimeout(2 * time.Second)
	res := Fetch(context.Background(), client, ts.URL, gamesDesc)
	if res.Kind != Error {
		t.Fatalf("kind = %v, want Error", res.Kind)
	}
	if res.Err == nil {
		t.Fatal("expected a wrapped connection error")
	}
	if res.StatusCode != 0 {
		t.Errorf("expected no status code, got %d", res.StatusCode)
	}
}
