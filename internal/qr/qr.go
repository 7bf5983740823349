package qr

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"campusevents/internal/crypto"
)

var ErrInvalidPayload = errors.New("invalid_qr")

const dataURLPrefix = "data:image/png;base64,"

// Payload is the JSON document embedded in the rendered code.
type Payload struct {
	RegistrationID string `json:"registrationId"`
	EventID        string `json:"eventId"`
	Token          string `json:"token"`
	Timestamp      int64  `json:"timestamp"`
}

// Binding is the plaintext of a sealed token.
type Binding struct {
	RegistrationID string `json:"registrationId"`
	UserID         string `json:"userId"`
}

type Code struct {
	Payload Payload
	Data    string
	Image   string
	Sealed  string
}

type Issuer struct {
	sealer *crypto.Sealer
	size   int
	now    func() time.Time
}

func NewIssuer(sealer *crypto.Sealer, size int) *Issuer {
	if size <= 0 {
		size = 300
	}
	return &Issuer{sealer: sealer, size: size, now: time.Now}
}

func (i *Issuer) Issue(registrationID, eventID, userID string) (Code, error) {
	token, err := crypto.NewQRToken()
	if err != nil {
		return Code{}, err
	}
	payload := Payload{
		RegistrationID: registrationID,
		EventID:        eventID,
		Token:          token,
		Timestamp:      i.now().UTC().UnixMilli(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Code{}, err
	}
	png, err := qrcode.Encode(string(data), qrcode.Highest, i.size)
	if err != nil {
		return Code{}, err
	}
	binding, err := json.Marshal(Binding{RegistrationID: registrationID, UserID: userID})
	if err != nil {
		return Code{}, err
	}
	sealed, err := i.sealer.Seal(binding)
	if err != nil {
		return Code{}, err
	}
	return Code{
		Payload: payload,
		Data:    string(data),
		Image:   dataURLPrefix + base64.StdEncoding.EncodeToString(png),
		Sealed:  sealed,
	}, nil
}

func (i *Issuer) Open(sealed string) (Binding, error) {
	plaintext, err := i.sealer.Open(strings.TrimSpace(sealed))
	if err != nil {
		return Binding{}, ErrInvalidPayload
	}
	var binding Binding
	if err := json.Unmarshal(plaintext, &binding); err != nil || binding.RegistrationID == "" {
		return Binding{}, ErrInvalidPayload
	}
	return binding, nil
}

// ParsePayload decodes scanned JSON. Codes printed before the camelCase
// format used snake_case keys; both are accepted.
func ParsePayload(raw string) (Payload, error) {
	var doc struct {
		Payload
		LegacyRegistrationID json.RawMessage `json:"registration_id"`
		LegacyEventID        json.RawMessage `json:"event_id"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return Payload{}, ErrInvalidPayload
	}
	payload := doc.Payload
	if payload.RegistrationID == "" {
		payload.RegistrationID = rawID(doc.LegacyRegistrationID)
	}
	if payload.EventID == "" {
		payload.EventID = rawID(doc.LegacyEventID)
	}
	if payload.RegistrationID == "" {
		return Payload{}, ErrInvalidPayload
	}
	return payload, nil
}

// DecodeImage returns the PNG bytes behind a data URL produced by Issue.
func DecodeImage(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, ErrInvalidPayload
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, dataURLPrefix))
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
