package bus

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// DebugEnvelope is the JSON payload carried by debug bus messages: the chat
// message that triggered (or resulted from) a debug command.
type DebugEnvelope struct {
	MessageID  string `json:"message_id"`
	ChannelID  string `json:"channel_id"`
	AuthorID   string `json:"author_id,omitempty"` // inbound required
	AuthorName string `json:"author_name,omitempty"`
	Text       string `json:"text"`
	SentAt     string `json:"sent_at"` // RFC3339
	ReplyTo    string `json:"reply_to,omitempty"`
}

func (e DebugEnvelope) Validate() error {
	if err := validateRequiredCanonicalString("message_id", e.MessageID); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("channel_id", e.ChannelID); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("text", e.Text); err != nil {
		return err
	}
	if err := validateRequiredCanonicalString("sent_at", e.SentAt); err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339, e.SentAt); err != nil {
		return fmt.Errorf("sent_at must be RFC3339")
	}
	if e.AuthorID != "" {
		if err := validateOptionalCanonicalString("author_id", e.AuthorID); err != nil {
			return err
		}
	}
	if e.ReplyTo != "" {
		if err := validateOptionalCanonicalString("reply_to", e.ReplyTo); err != nil {
			return err
		}
	}
	return nil
}

func EncodeDebugEnvelope(env DebugEnvelope) (string, error) {
	if err := env.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal debug envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

func DecodeDebugEnvelope(payloadBase64 string) (DebugEnvelope, error) {
	if err := validateRequiredCanonicalString("payload_base64", payloadBase64); err != nil {
		return DebugEnvelope{}, err
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadBase64)
	if err != nil {
		return DebugEnvelope{}, fmt.Errorf("payload_base64 decode failed: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(payloadBytes))
	dec.DisallowUnknownFields()

	var env DebugEnvelope
	if err := dec.Decode(&env); err != nil {
		return DebugEnvelope{}, fmt.Errorf("invalid debug envelope json: %w", err)
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return DebugEnvelope{}, fmt.Errorf("invalid debug envelope json: trailing data")
	}

	if err := env.Validate(); err != nil {
		return DebugEnvelope{}, err
	}
	return env, nil
}

func validateRequiredCanonicalString(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%s must not contain leading/trailing spaces", field)
	}
	return nil
}

func validateOptionalCanonicalString(field, value string) error {
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%s must not contain leading/trailing spaces", field)
	}
	return nil
}
