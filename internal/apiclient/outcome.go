package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/me/storefront/pkg/model"
)

// Kind tells the three request outcomes apart.
type Kind int

const (
	KindSuccess Kind = iota
	KindBusinessFailure
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindBusinessFailure:
		return "business_failure"
	case KindTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the normalized result of one request. Exactly one of Data,
// Failure or Err is meaningful, selected by Kind.
type Outcome struct {
	Kind    Kind
	Data    json.RawMessage
	Failure *model.BusinessFailure
	Err     *model.TransportError
}

// envelope mirrors model.Envelope with a pointer code so a missing field
// can be told apart from code 0.
type envelope struct {
	Code    *int            `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Classify turns an HTTP response into an Outcome. A decodable envelope
// decides on its own code whatever the HTTP status; anything else is a
// transport error.
func Classify(url string, status int, body []byte) Outcome {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Code == nil {
		cause := errors.New("malformed response envelope")
		if err != nil {
			cause = fmt.Errorf("malformed response envelope: %w", err)
		}
		if status < 200 || status > 299 {
			cause = fmt.Errorf("unexpected HTTP status %d", status)
		}
		return Outcome{Kind: KindTransportError, Err: &model.TransportError{URL: url, Status: status, Cause: cause}}
	}

	if *env.Code == model.CodeOK {
		return Outcome{Kind: KindSuccess, Data: env.Data}
	}
	return Outcome{
		Kind:    KindBusinessFailure,
		Failure: &model.BusinessFailure{URL: url, Code: *env.Code, Message: env.Message},
	}
}
