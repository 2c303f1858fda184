package unit

import (
	"encoding/json"
	"testing"

	"broker-dashboard-app/backend/internal/infra/ringcentral"
)

func decodeCallLogs(t *testing.T, raw string) []ringcentral.CallLogRecord {
	t.Helper()
	var records []ringcentral.CallLogRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		t.Fatalf("decode call logs: %v", err)
	}
	return records
}

func TestAnalyzeCallLogs_Classification(t *testing.T) {
	records := decodeCallLogs(t, `[
		{"id":"c1","direction":"Outbound","result":"Call connected","duration":120,"from":{"extensionId":"101","name":"Ana"}},
		{"id":"c2","direction":"Outbound","result":"Voicemail","duration":30,"from":{"extensionId":"101","name":"Ana"}},
		{"id":"c3","direction":"Outbound","result":"No Answer","duration":0,"from":{"extensionId":"102","name":"Ben"}},
		{"id":"c4","direction":"Inbound","result":"Accepted","duration":60,"to":{"extensionId":"102","name":"Ben"}},
		{"id":"c5","direction":"Outbound","result":"Busy","duration":0,"from":{"extensionId":"101","name":"Ana"}}
	]`)

	metrics := ringcentral.AnalyzeCallLogs(records)

	if metrics.TotalCalls != 5 {
		t.Fatalf("total calls = %d, want 5", metrics.TotalCalls)
	}
	if metrics.ContactsMade != 2 || metrics.Voicemails != 1 || metrics.Missed != 2 {
		t.Fatalf("classification wrong: %+v", metrics)
	}

	if len(metrics.ByUser) != 2 {
		t.Fatalf("user rows = %d, want 2", len(metrics.ByUser))
	}
	ana := metrics.ByUser[0]
	if ana.ExtensionID != "101" {
		// 两人触达数相同时保持首次出现顺序，Ana 在前。
		t.Fatalf("first user = %s, want 101", ana.ExtensionID)
	}
	if ana.TotalCalls != 3 || ana.ContactsMade != 1 || ana.Voicemails != 1 || ana.Missed != 1 {
		t.Fatalf("ana row wrong: %+v", ana)
	}
	if ana.TotalDuration != 150 {
		t.Fatalf("ana duration = %d, want 150", ana.TotalDuration)
	}
}

func TestAnalyzeCallLogs_OwnerResolution(t *testing.T) {
	records := decodeCallLogs(t, `[
		{"id":"c1","direction":"Outbound","result":"Accepted","from":{"extensionId":"101","name":"Ana"}},
		{"id":"c2","direction":"Inbound","result":"Accepted","to":{"extensionId":"102","name":"Ben"}},
		{"id":"c3","direction":"Outbound","result":"Accepted","extension":{"id":"103","name":"Cy"}},
		{"id":"c4","direction":"Outbound","result":"Accepted"}
	]`)

	metrics := ringcentral.AnalyzeCallLogs(records)

	ids := make(map[string]bool)
	for _, row := range metrics.ByUser {
		ids[row.ExtensionID] = true
	}
	for _, want := range []string{"101", "102", "103", "unknown"} {
		if !ids[want] {
			t.Fatalf("missing user %q in %v", want, metrics.ByUser)
		}
	}
}

func TestAnalyzeCallLogs_SortsByContactsMade(t *testing.T) {
	records := decodeCallLogs(t, `[
		{"id":"c1","direction":"Outbound","result":"Missed","from":{"extensionId":"101","name":"Ana"}},
		{"id":"c2","direction":"Outbound","result":"Accepted","from":{"extensionId":"102","name":"Ben"}},
		{"id":"c3","direction":"Outbound","result":"Accepted","from":{"extensionId":"102","name":"Ben"}},
		{"id":"c4","direction":"Outbound","result":"Accepted","from":{"extensionId":"103","name":"Cy"}}
	]`)

	metrics := ringcentral.AnalyzeCallLogs(records)

	if metrics.ByUser[0].ExtensionID != "102" {
		t.Fatalf("top user = %s, want 102", metrics.ByUser[0].ExtensionID)
	}
	if metrics.ByUser[1].ExtensionID != "103" {
		t.Fatalf("second user = %s, want 103", metrics.ByUser[1].ExtensionID)
	}
}

func TestAnalyzeCallLogs_Empty(t *testing.T) {
	metrics := ringcentral.AnalyzeCallLogs(nil)
	if metrics.TotalCalls != 0 || metrics.ByUser == nil || len(metrics.ByUser) != 0 {
		t.Fatalf("empty input should produce zeroed metrics with empty slice: %+v", metrics)
	}
}
