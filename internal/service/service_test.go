package service

import (
	"encoding/json"
	"testing"
)

func TestFromMQTTMalformedTimestamp(t *testing.T) {
	s := &ReadingService{}

	// A malformed timestamp drops the record without error and without
	// reaching the repository (repos stays nil on purpose).
	payload, _ := json.Marshal(map[string]any{
		"meter_id":  int64(1),
		"timestamp": "not-a-timestamp",
		"value":     42.0,
	})
	if err := s.FromMQTT("energy/readings", payload); err != nil {
		t.Errorf("malformed timestamp returned error: %v", err)
	}
}

func TestFromMQTTBadPayload(t *testing.T) {
	s := &ReadingService{}
	if err := s.FromMQTT("energy/readings", []byte("{not json")); err == nil {
		t.Error("expected error for undecodable payload")
	}
}
