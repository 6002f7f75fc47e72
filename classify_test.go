package earnapp

import (
	"errors"
	"testing"

	http "github.com/bogdanfinn/fhttp"
)

func TestClassifyDashboard(t *testing.T) {
	money, _ := Lookup(EndpointMoney)

	tests := []struct {
		name   string
		status int
		body   string
		want   OutcomeKind
	}{
		{"429 with JSON body", http.StatusTooManyRequests, `{"ok":true}`, OutcomeRateLimited},
		{"429 with invalid arguments body", http.StatusTooManyRequests, "Invalid arguments", OutcomeRateLimited},
		{"403", http.StatusForbidden, `{"error":"denied"}`, OutcomeForbidden},
		{"200 too many requests text", http.StatusOK, "Too Many Requests", OutcomeRateLimited},
		{"200 invalid arguments text", http.StatusOK, "Invalid arguments", OutcomeInvalidArguments},
		{"200 html", http.StatusOK, "<html>maintenance</html>", OutcomeMalformedBody},
		{"200 empty", http.StatusOK, "", OutcomeMalformedBody},
		{"200 JSON", http.StatusOK, `{"balance":1.5}`, OutcomeSuccess},
		{"500 JSON", http.StatusInternalServerError, `{"error":"oops"}`, OutcomeSuccess},
		{"near-miss sentinel", http.StatusOK, "Too Many Requests\n", OutcomeMalformedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := classify(dashboardChain, money, jsonResponse(tt.status, tt.body))
			if outcome.Kind != tt.want {
				t.Errorf("kind = %s, want %s", outcome.Kind, tt.want)
			}
			if outcome.Kind != OutcomeSuccess && outcome.Body != tt.body {
				t.Errorf("body = %q, want %q", outcome.Body, tt.body)
			}
		})
	}
}

func TestClassifyDevice(t *testing.T) {
	ndt7, _ := Lookup(EndpointNDT7)
	linked, _ := Lookup(EndpointIsLinked)

	tests := []struct {
		name     string
		endpoint Endpoint
		status   int
		body     string
		want     OutcomeKind
	}{
		{"bare text endpoint", ndt7, http.StatusOK, "OK", OutcomeSuccess},
		{"bare text endpoint ignores sentinels", ndt7, http.StatusOK, "Too Many Requests", OutcomeSuccess},
		{"text from JSON endpoint", linked, http.StatusOK, "OK", OutcomeMalformedBody},
		{"too many requests", linked, http.StatusOK, "Too Many Requests", OutcomeRateLimited},
		{"invalid arguments", linked, http.StatusBadRequest, "Invalid arguments", OutcomeInvalidArguments},
		{"429", linked, http.StatusTooManyRequests, "", OutcomeRateLimited},
		{"JSON", linked, http.StatusOK, `{"email":"a@b.c"}`, OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := classify(deviceChain, tt.endpoint, jsonResponse(tt.status, tt.body))
			if outcome.Kind != tt.want {
				t.Errorf("kind = %s, want %s", outcome.Kind, tt.want)
			}
		})
	}
}

func TestOutcomeErr(t *testing.T) {
	money, _ := Lookup(EndpointMoney)

	tests := []struct {
		kind OutcomeKind
		want error
	}{
		{OutcomeRateLimited, ErrRateLimited},
		{OutcomeForbidden, ErrIncorrectCredential},
		{OutcomeInvalidArguments, ErrInvalidArguments},
		{OutcomeMalformedBody, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			outcome := failure(tt.kind, money, jsonResponse(http.StatusOK, "body"))
			if err := outcome.Err(); !errors.Is(err, tt.want) {
				t.Errorf("Err() = %v, want %v", err, tt.want)
			}
		})
	}

	ok := classify(dashboardChain, money, jsonResponse(http.StatusOK, `{}`))
	if err := ok.Err(); err != nil {
		t.Errorf("success Err() = %v, want nil", err)
	}
}

func TestMalformedResponseKeepsBody(t *testing.T) {
	money, _ := Lookup(EndpointMoney)
	body := "<html><body>502 Bad Gateway</body></html>"

	err := classify(dashboardChain, money, jsonResponse(http.StatusBadGateway, body)).Err()

	var mre *MalformedResponseError
	if !errors.As(err, &mre) {
		t.Fatalf("err = %v, want *MalformedResponseError", err)
	}
	if mre.Body != body {
		t.Errorf("body = %q, want %q", mre.Body, body)
	}
	if mre.Status != http.StatusBadGateway || mre.Endpoint != EndpointMoney {
		t.Errorf("status/endpoint = %d/%s", mre.Status, mre.Endpoint)
	}
	if mre.Err == nil {
		t.Errorf("decode error not kept")
	}
}

func TestResultDecode(t *testing.T) {
	money, _ := Lookup(EndpointMoney)
	outcome := classify(dashboardChain, money, jsonResponse(http.StatusOK, `{"balance":2.25,"redeem_details":{"email":"x@y.z"}}`))

	var got struct {
		Balance       float64 `json:"balance"`
		RedeemDetails struct {
			Email string `json:"email"`
		} `json:"redeem_details"`
	}
	if err := outcome.Result.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Balance != 2.25 || got.RedeemDetails.Email != "x@y.z" {
		t.Errorf("decoded %+v", got)
	}

	ndt7, _ := Lookup(EndpointNDT7)
	text := classify(deviceChain, ndt7, jsonResponse(http.StatusOK, "OK"))
	if text.Result.Text != "OK" || text.Result.Value != "OK" {
		t.Errorf("text result = %+v", text.Result)
	}
	if err := text.Result.Decode(&got); err == nil {
		t.Errorf("Decode of text result succeeded")
	}
}
