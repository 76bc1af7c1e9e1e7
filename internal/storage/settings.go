package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidChannelID is returned when a channel id is not a Discord snowflake.
var ErrInvalidChannelID = errors.New("storage: channel id must be a non-empty string of digits")

// document is the flat settings file. Unknown keys are kept as-is so other
// tools can share the file.
type document map[string]json.RawMessage

func decodeDocument(data []byte) (document, error) {
	doc := document{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, err
	}
	if doc == nil {
		doc = document{}
	}
	return doc, nil
}

func (d document) assistantID() (string, bool) {
	raw, exists := d[keyAssistantID]
	if !exists {
		return "", false
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", false
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}

func (d document) setAssistantID(id string) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	d[keyAssistantID] = raw
	return nil
}

// channelID accepts both the integer form and a digit string.
func (d document) channelID() (string, bool) {
	raw, exists := d[keyChannelID]
	if !exists {
		return "", false
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return normalizeChannelID(num.String())
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalizeChannelID(s)
	}
	return "", false
}

func (d document) setChannelID(id string) error {
	id, ok := normalizeChannelID(id)
	if !ok {
		return ErrInvalidChannelID
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChannelID, err)
	}
	d[keyChannelID] = json.RawMessage(strconv.FormatUint(n, 10))
	return nil
}

func normalizeChannelID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}
