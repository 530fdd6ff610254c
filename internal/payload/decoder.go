// Package payload normalizes scanned QR strings and structured request
// bodies into a single tagged shape the orchestrator can switch on.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gatewise/checkin/internal/domain"
)

type Kind string

const (
	KindSingle      Kind = "single"
	KindBatch       Kind = "batch"
	KindLegacyToken Kind = "legacy_token"
)

// ErrMalformed is returned for input that is neither recognizable JSON nor
// a signed token. Callers map it to a 400-class response.
var ErrMalformed = errors.New("unrecognized check-in payload")

type Payload struct {
	Kind   Kind
	Guests []domain.GuestRef
	// Token holds the raw legacy token for KindLegacyToken; signature
	// verification is the orchestrator's job.
	Token string
}

// scanBody whitelists the fields a QR payload may carry. Unmarshalling into
// a typed struct means attacker-supplied keys (including __proto__ style
// junk) are simply dropped.
type scanBody struct {
	Guest  *domain.GuestRef  `json:"guest"`
	Guests []domain.GuestRef `json:"guests"`
	Token  string            `json:"token"`
	Email  string            `json:"e"`
	Name   string            `json:"n"`
}

// Decode turns a raw scanned string into a Payload. It never panics:
// garbage, empty strings, and oversized arrays all come back as either a
// filtered Payload or ErrMalformed.
func Decode(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformed
	}

	var body scanBody
	if err := json.Unmarshal([]byte(raw), &body); err == nil {
		if p := fromScanBody(&body); p != nil {
			return p, nil
		}
		return nil, ErrMalformed
	}

	if looksLikeJWT(raw) {
		return &Payload{Kind: KindLegacyToken, Token: raw}, nil
	}

	return nil, ErrMalformed
}

// DecodeRequest normalizes a structured check-in body. A Token field may
// itself contain JSON or a legacy token and is routed through Decode.
func DecodeRequest(req *domain.CheckinRequest) (*Payload, error) {
	switch {
	case len(req.Guests) > 0:
		return &Payload{Kind: KindBatch, Guests: filterRefs(req.Guests)}, nil
	case req.Guest != nil:
		return &Payload{Kind: KindSingle, Guests: []domain.GuestRef{*req.Guest}}, nil
	case req.Token != "":
		return Decode(req.Token)
	default:
		return nil, ErrMalformed
	}
}

func fromScanBody(body *scanBody) *Payload {
	switch {
	case body.Guests != nil:
		return &Payload{Kind: KindBatch, Guests: filterRefs(body.Guests)}
	case body.Guest != nil:
		return &Payload{Kind: KindSingle, Guests: []domain.GuestRef{*body.Guest}}
	case body.Email != "" || body.Name != "":
		return &Payload{Kind: KindSingle, Guests: []domain.GuestRef{{Email: body.Email, Name: body.Name}}}
	case body.Token != "" && looksLikeJWT(body.Token):
		return &Payload{Kind: KindLegacyToken, Token: body.Token}
	default:
		return nil
	}
}

// filterRefs drops entries missing both email and name. Entries with only
// one of the two survive: per-guest validation rejects them individually
// rather than the whole batch failing at decode time.
func filterRefs(refs []domain.GuestRef) []domain.GuestRef {
	out := make([]domain.GuestRef, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref.Email) == "" && strings.TrimSpace(ref.Name) == "" {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// looksLikeJWT checks for the header.payload.signature shape: three
// non-empty base64url segments.
func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		if _, err := base64.RawURLEncoding.DecodeString(part); err != nil {
			return false
		}
	}
	return true
}
