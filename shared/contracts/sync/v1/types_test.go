package v1

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEnvelopeValidate(t *testing.T) {
	t.Parallel()

	valid := Envelope{V: Version, Type: TypeCreateTimer}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid envelope rejected: %v", err)
	}

	cases := []struct {
		name    string
		env     Envelope
		wantMsg string
	}{
		{name: "missing version", env: Envelope{Type: TypeCreateTimer}, wantMsg: "missing field: v"},
		{name: "wrong version", env: Envelope{V: "v2", Type: TypeCreateTimer}, wantMsg: "unsupported protocol version"},
		{name: "missing type", env: Envelope{V: Version}, wantMsg: "missing field: type"},
		{name: "unknown type", env: Envelope{V: Version, Type: "frobnicate"}, wantMsg: "unknown type"},
	}

	for _, tc := range cases {
		err := tc.env.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Fatalf("%s: error %q does not contain %q", tc.name, err, tc.wantMsg)
		}
	}

	for _, typ := range []string{TypeCreateTimer, TypeStopTimer, TypeAllTimers, TypeError} {
		if err := (Envelope{V: Version, Type: typ}).Validate(); err != nil {
			t.Fatalf("type %q rejected: %v", typ, err)
		}
	}
}

func TestTimerPayloadOmitsEndWhileActive(t *testing.T) {
	t.Parallel()

	active := TimerPayload{ID: 1, Description: "work", Start: time.Now().UTC()}
	b, err := json.Marshal(active)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), `"end"`) || strings.Contains(string(b), `"duration_ms"`) {
		t.Fatalf("active timer must omit end/duration_ms: %s", b)
	}

	end := time.Now().UTC()
	dur := int64(60000)
	closed := TimerPayload{ID: 2, Description: "done", Start: end.Add(-time.Minute), End: &end, DurationMS: &dur}
	b, err = json.Marshal(closed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"end"`) || !strings.Contains(string(b), `"duration_ms"`) {
		t.Fatalf("closed timer must carry end/duration_ms: %s", b)
	}
}
