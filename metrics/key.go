// Package metrics implements the histogram-based aggregation pipeline of
// spec §4.2: per-key duration sample recording and percentile extraction,
// built on github.com/codahale/hdrhistogram the way the retrieval pack's
// load-test benchmark (teleport's lib/client/bench.go) does.
package metrics

import "fmt"

// Kind distinguishes the three metric-key shapes spec §3 allows.
type Kind int

const (
	// KindAction is a bare action identifier, e.g. "ws_recv".
	KindAction Kind = iota
	// KindActionURL is the (action, url) pair HTTP/WS samples use.
	KindActionURL
	// KindCall is (:call, (module, func)) for CallFunction tracing.
	KindCall
)

// Key is the canonical identifier samples are recorded under. Two Key
// values are equal (and therefore the same histogram) iff all fields
// relevant to their Kind match, so Key is safe to use as a map key
// directly.
type Key struct {
	Kind   Kind
	Action string
	URL    string
	Module string
	Func   string
}

// ActionKey builds a bare-action metric key.
func ActionKey(action string) Key {
	return Key{Kind: KindAction, Action: action}
}

// ActionURLKey builds an (action, url) metric key.
func ActionURLKey(action, url string) Key {
	return Key{Kind: KindActionURL, Action: action, URL: url}
}

// CallKey builds a (:call, (module, func)) metric key.
func CallKey(module, fn string) Key {
	return Key{Kind: KindCall, Module: module, Func: fn}
}

// String renders the key's canonical printed form, used both as the map
// sort key for deterministic export ordering (spec §9 Open Questions) and
// as the exporter's "session_action_name" label (spec §4.10).
func (k Key) String() string {
	switch k.Kind {
	case KindActionURL:
		return fmt.Sprintf("action(%s %s)", k.Action, k.URL)
	case KindCall:
		return fmt.Sprintf("call(%s.%s)", shortModule(k.Module), k.Func)
	default:
		return k.Action
	}
}

// shortModule trims a dotted module path down to its last segment, mirroring
// the exporter's "call(ShortMod.func)" label from spec §4.10.
func shortModule(module string) string {
	last := module
	for i := len(module) - 1; i >= 0; i-- {
		if module[i] == '.' {
			last = module[i+1:]
			break
		}
	}
	return last
}
