package gateway

import (
	"fmt"
	"strings"
)

// Target is a known upstream the gateway can forward to.
type Target int

const (
	// TargetNone means the path belongs to no upstream and is always served
	// locally.
	TargetNone Target = iota
	TargetMarge
	TargetBMX
	TargetUpdates
)

// Targets lists every forwardable target in match order.
var Targets = []Target{TargetMarge, TargetBMX, TargetUpdates}

func (t Target) String() string {
	switch t {
	case TargetMarge:
		return "marge"
	case TargetBMX:
		return "bmx"
	case TargetUpdates:
		return "updates"
	default:
		return "none"
	}
}

// Prefix is the inbound path prefix routed to t.
func (t Target) Prefix() string {
	switch t {
	case TargetMarge:
		return "/marge"
	case TargetBMX:
		return "/bmx"
	case TargetUpdates:
		return "/updates"
	default:
		return ""
	}
}

// DefaultBase is the vendor host t used to live on.
func (t Target) DefaultBase() string {
	switch t {
	case TargetMarge:
		return "https://streaming.bose.com"
	case TargetBMX:
		return "https://content.api.bose.io"
	case TargetUpdates:
		return "https://worldwide.bose.com"
	default:
		return ""
	}
}

// ParseTarget maps a config name to a Target.
func ParseTarget(name string) (Target, error) {
	for _, t := range Targets {
		if strings.EqualFold(name, t.String()) {
			return t, nil
		}
	}
	return TargetNone, fmt.Errorf("unknown upstream target %q", name)
}

// Match returns the target owning path. Every path maps to exactly one
// Target; TargetNone when no prefix applies.
func Match(path string) Target {
	for _, t := range Targets {
		p := t.Prefix()
		if path == p || strings.HasPrefix(path, p+"/") {
			return t
		}
	}
	return TargetNone
}

// Upstreams maps targets to upstream base URLs. A target missing from the
// map is never forwarded.
type Upstreams map[Target]string

// DefaultUpstreams returns the vendor hosts for every target.
func DefaultUpstreams() Upstreams {
	u := make(Upstreams, len(Targets))
	for _, t := range Targets {
		u[t] = t.DefaultBase()
	}
	return u
}

// WithOverrides returns the default upstreams with the named overrides
// applied. An unknown target name is an error.
func WithOverrides(overrides map[string]string) (Upstreams, error) {
	u := DefaultUpstreams()
	for name, base := range overrides {
		t, err := ParseTarget(name)
		if err != nil {
			return nil, err
		}
		u[t] = base
	}
	return u, nil
}
