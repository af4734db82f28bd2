package logstream

import (
	"testing"
	"time"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
)

func TestEntryValuesRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)
	event := domain.LogEvent{
		EventID:      "evt-1",
		DeploymentID: "dep-1",
		ProjectID:    "proj-1",
		Seq:          42,
		Log:          "npm install",
		CreatedAt:    created,
	}

	values := entryValues(event)
	// redis hands field values back as strings.
	asStrings := make(map[string]any, len(values))
	for k, v := range values {
		asStrings[k] = v.(string)
	}

	got, err := eventFromValues(asStrings)
	if err != nil {
		t.Fatalf("eventFromValues: %v", err)
	}
	if got != event {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, event)
	}
}

func TestEventFromValuesRejectsMissingIdentity(t *testing.T) {
	cases := map[string]map[string]any{
		"no event id":      {fieldDeploymentID: "dep-1", fieldSeq: "1"},
		"no deployment id": {fieldEventID: "evt-1", fieldSeq: "1"},
		"bad seq":          {fieldEventID: "evt-1", fieldDeploymentID: "dep-1", fieldSeq: "x"},
	}
	for name, values := range cases {
		if _, err := eventFromValues(values); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
