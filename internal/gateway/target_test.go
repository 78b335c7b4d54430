package gateway

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		path string
		want Target
	}{
		{"/marge", TargetMarge},
		{"/marge/streaming/sourceproviders", TargetMarge},
		{"/margeX/streaming", TargetNone},
		{"/bmx/registry/v1/services", TargetBMX},
		{"/updates/soundtouch", TargetUpdates},
		{"/streaming/sourceproviders", TargetNone},
		{"/", TargetNone},
		{"", TargetNone},
	}
	for _, tt := range tests {
		if got := Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseTarget(t *testing.T) {
	for _, target := range Targets {
		got, err := ParseTarget(target.String())
		if err != nil || got != target {
			t.Errorf("ParseTarget(%q) = %v, %v", target.String(), got, err)
		}
	}
	if _, err := ParseTarget("oauth"); err == nil {
		t.Error("ParseTarget(oauth) should fail")
	}
}

func TestDefaultUpstreamsCoverEveryTarget(t *testing.T) {
	u := DefaultUpstreams()
	for _, target := range Targets {
		if u[target] == "" {
			t.Errorf("no default upstream for %v", target)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, in := range []string{"local", "PROXY", " shadow "} {
		if _, err := ParseMode(in); err != nil {
			t.Errorf("ParseMode(%q) error = %v", in, err)
		}
	}
	if _, err := ParseMode("mirror"); err == nil {
		t.Error("ParseMode(mirror) should fail")
	}
}

func TestWithOverrides(t *testing.T) {
	u, err := WithOverrides(map[string]string{"marge": "http://127.0.0.1:9000"})
	if err != nil {
		t.Fatalf("WithOverrides() error = %v", err)
	}
	if u[TargetMarge] != "http://127.0.0.1:9000" || u[TargetBMX] != TargetBMX.DefaultBase() {
		t.Errorf("WithOverrides() = %v", u)
	}
	if _, err := WithOverrides(map[string]string{"tunein": "http://x"}); err == nil {
		t.Error("unknown target should be rejected")
	}
}
