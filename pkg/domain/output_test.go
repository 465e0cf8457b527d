package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOutputDecoding(t *testing.T) {
	tests := []struct {
		raw         string
		wantKind    OutputKind
		wantPresent bool
		wantURLs    []string
	}{
		{raw: `null`, wantKind: OutputAbsent},
		{raw: `""`, wantKind: OutputString},
		{raw: `"https://x/a.png"`, wantKind: OutputString, wantPresent: true, wantURLs: []string{"https://x/a.png"}},
		{
			raw:         `["https://x/1.png", 3, ["nested"], "https://x/2.png"]`,
			wantKind:    OutputList,
			wantPresent: true,
			wantURLs:    []string{"https://x/1.png", "https://x/2.png"},
		},
		{
			raw:         `{"video":"https://x/v.mp4","meta":{"fps":24},"caption":"text","audio":"https://x/a.wav"}`,
			wantKind:    OutputMap,
			wantPresent: true,
			wantURLs:    []string{"https://x/v.mp4", "https://x/a.wav"},
		},
		{raw: `true`, wantKind: OutputScalar, wantPresent: true},
		{raw: `false`, wantKind: OutputScalar},
		{raw: `0`, wantKind: OutputScalar},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var o Output
			if err := json.Unmarshal([]byte(tt.raw), &o); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if o.Kind() != tt.wantKind || o.Present() != tt.wantPresent {
				t.Errorf("Kind()=%v Present()=%v, want %v %v", o.Kind(), o.Present(), tt.wantKind, tt.wantPresent)
			}
			if diff := cmp.Diff(tt.wantURLs, o.URLs()); diff != "" {
				t.Errorf("URLs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutputMarshalKeepsShape(t *testing.T) {
	for _, raw := range []string{
		`"https://x/a.png"`,
		`["https://x/1.png",{"k":"v"}]`,
		`{"b":"https://x/b","a":1}`,
		`12.5`,
		`null`,
	} {
		var o Output
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", raw, err)
		}
		out, err := json.Marshal(o)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(out) != raw {
			t.Errorf("Marshal() = %s, want %s", out, raw)
		}
	}
}
