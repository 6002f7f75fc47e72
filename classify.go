package earnapp

import (
	"encoding/json"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
)

// Plain-text bodies some endpoints answer with instead of JSON.
const (
	bodyTooManyRequests  = "Too Many Requests"
	bodyInvalidArguments = "Invalid arguments"
)

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeForbidden
	OutcomeMalformedBody
	OutcomeInvalidArguments
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeMalformedBody:
		return "malformed_body"
	case OutcomeInvalidArguments:
		return "invalid_arguments"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Result is the decoded payload of a successful call.
type Result struct {
	// Raw is the JSON body. Nil for bare-text endpoints.
	Raw json.RawMessage
	// Value is Raw decoded into interface values, or the text for bare-text endpoints.
	Value any
	// Text is the body as returned.
	Text string
}

// Decode unmarshals the JSON body into v.
func (r *Result) Decode(v any) error {
	if r.Raw == nil {
		return fmt.Errorf("result is plain text, not JSON: %q", r.Text)
	}
	return json.Unmarshal(r.Raw, v)
}

// Outcome is the classification of one raw response.
type Outcome struct {
	Kind     OutcomeKind
	Endpoint string
	Status   int
	Result   *Result
	// Body is kept for every non-success outcome.
	Body string
	// decodeErr is set for OutcomeMalformedBody.
	decodeErr error
}

// Err converts a non-success outcome into its error. It returns nil on success.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeRateLimited:
		return fmt.Errorf("%s: %w", o.Endpoint, ErrRateLimited)
	case OutcomeForbidden:
		return fmt.Errorf("%s: %w", o.Endpoint, ErrIncorrectCredential)
	case OutcomeInvalidArguments:
		return fmt.Errorf("%s: %w", o.Endpoint, ErrInvalidArguments)
	default:
		return &MalformedResponseError{Endpoint: o.Endpoint, Status: o.Status, Body: o.Body, Err: o.decodeErr}
	}
}

// classifier inspects a response and either claims it or passes.
type classifier func(e Endpoint, resp *RawResponse) (Outcome, bool)

// dashboardChain: status codes first, so a 429 is rate limiting whatever the body says.
var dashboardChain = []classifier{
	statusRateLimited,
	statusForbidden,
	sentinelRateLimited,
	sentinelInvalidArguments,
	decodeJSON,
}

// deviceChain: the device API signals errors in the body, not the status.
var deviceChain = []classifier{
	rawTextEndpoint,
	sentinelRateLimited,
	sentinelInvalidArguments,
	statusRateLimited,
	decodeJSON,
}

// classify runs resp through chain. The last link of every chain is total.
func classify(chain []classifier, e Endpoint, resp *RawResponse) Outcome {
	for _, c := range chain {
		if outcome, ok := c(e, resp); ok {
			return outcome
		}
	}
	return decodeJSONOutcome(e, resp)
}

func failure(kind OutcomeKind, e Endpoint, resp *RawResponse) Outcome {
	return Outcome{Kind: kind, Endpoint: e.Name, Status: resp.StatusCode, Body: resp.Text()}
}

func statusRateLimited(e Endpoint, resp *RawResponse) (Outcome, bool) {
	if resp.StatusCode != http.StatusTooManyRequests {
		return Outcome{}, false
	}
	return failure(OutcomeRateLimited, e, resp), true
}

func statusForbidden(e Endpoint, resp *RawResponse) (Outcome, bool) {
	if resp.StatusCode != http.StatusForbidden {
		return Outcome{}, false
	}
	return failure(OutcomeForbidden, e, resp), true
}

func sentinelRateLimited(e Endpoint, resp *RawResponse) (Outcome, bool) {
	if resp.Text() != bodyTooManyRequests {
		return Outcome{}, false
	}
	return failure(OutcomeRateLimited, e, resp), true
}

func sentinelInvalidArguments(e Endpoint, resp *RawResponse) (Outcome, bool) {
	if resp.Text() != bodyInvalidArguments {
		return Outcome{}, false
	}
	return failure(OutcomeInvalidArguments, e, resp), true
}

// rawTextEndpoint matches by endpoint, never by sniffing the body.
func rawTextEndpoint(e Endpoint, resp *RawResponse) (Outcome, bool) {
	if !e.RawText {
		return Outcome{}, false
	}
	text := resp.Text()
	return Outcome{
		Kind:     OutcomeSuccess,
		Endpoint: e.Name,
		Status:   resp.StatusCode,
		Result:   &Result{Value: text, Text: text},
	}, true
}

func decodeJSON(e Endpoint, resp *RawResponse) (Outcome, bool) {
	return decodeJSONOutcome(e, resp), true
}

func decodeJSONOutcome(e Endpoint, resp *RawResponse) Outcome {
	var value any
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		outcome := failure(OutcomeMalformedBody, e, resp)
		outcome.decodeErr = err
		return outcome
	}
	return Outcome{
		Kind:     OutcomeSuccess,
		Endpoint: e.Name,
		Status:   resp.StatusCode,
		Result: &Result{
			Raw:   json.RawMessage(resp.Body),
			Value: value,
			Text:  resp.Text(),
		},
	}
}
