package core

import "strings"

// Config is the nested, string-keyed configuration map threaded through
// sessions and scenarios (spec §3, §4.1). Values may themselves be Config,
// []interface{}, or scalars. Config is treated as immutable by convention:
// every mutator returns a new Config rather than editing in place, matching
// the session's functional-pipeline model.
type Config map[string]interface{}

// Key is anything Lookup accepts to address a (possibly nested) value:
// a single string, a dotted string ("a.b.c"), or a []string path.
type Key interface{}

func keyPath(key Key) []string {
	switch k := key.(type) {
	case []string:
		return k
	case string:
		if k == "" {
			return nil
		}
		return strings.Split(k, ".")
	default:
		return nil
	}
}

// Lookup resolves key (single key, dotted string, or []string path) against
// cfg. With no default given and no value found, it returns a
// *RequiredConfigMissing carrying the resolved key path. sessionID is
// attached to the error for diagnostics; pass "" when no session is bound
// yet (e.g. resolving a scenario's default_config at load-test build time).
func Lookup(cfg Config, key Key, sessionID string, def ...interface{}) (interface{}, error) {
	path := keyPath(key)
	if len(path) == 0 {
		if len(def) > 0 {
			return def[0], nil
		}
		return nil, &RequiredConfigMissing{Key: path, SessionID: sessionID}
	}

	var cur interface{} = cfg
	for _, segment := range path {
		m, ok := asConfig(cur)
		if !ok {
			if len(def) > 0 {
				return def[0], nil
			}
			return nil, &RequiredConfigMissing{Key: path, SessionID: sessionID}
		}
		v, found := m[segment]
		if !found {
			if len(def) > 0 {
				return def[0], nil
			}
			return nil, &RequiredConfigMissing{Key: path, SessionID: sessionID}
		}
		cur = v
	}
	return cur, nil
}

// MustLookup is Lookup without a default; missing keys raise
// RequiredConfigMissing as described in spec §4.1.
func MustLookup(cfg Config, key Key, sessionID string) (interface{}, error) {
	return Lookup(cfg, key, sessionID)
}

func asConfig(v interface{}) (Config, bool) {
	switch m := v.(type) {
	case Config:
		return m, true
	case map[string]interface{}:
		return Config(m), true
	default:
		return nil, false
	}
}

// Set returns a copy of cfg with value installed at path, creating
// intermediate nested Config values as needed. This is the functional
// equivalent of set_config from spec §4.1.
func Set(cfg Config, key Key, value interface{}) Config {
	path := keyPath(key)
	if len(path) == 0 {
		return cfg
	}
	return setPath(cfg, path, value)
}

func setPath(cfg Config, path []string, value interface{}) Config {
	out := cloneShallow(cfg)
	head := path[0]
	if len(path) == 1 {
		out[head] = value
		return out
	}
	child, _ := asConfig(out[head])
	out[head] = setPath(child, path[1:], value)
	return out
}

func cloneShallow(cfg Config) Config {
	out := make(Config, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

// Update applies fn to the value currently at path (nil if absent) and
// installs the result, matching update_config from spec §4.1.
func Update(cfg Config, key Key, fn func(current interface{}) interface{}) Config {
	path := keyPath(key)
	if len(path) == 0 {
		return cfg
	}
	current, _ := Lookup(cfg, path, "", nil)
	return Set(cfg, path, fn(current))
}

// Delete returns a copy of cfg with path removed.
func Delete(cfg Config, key Key) Config {
	path := keyPath(key)
	if len(path) == 0 {
		return cfg
	}
	return deletePath(cfg, path)
}

func deletePath(cfg Config, path []string) Config {
	out := cloneShallow(cfg)
	head := path[0]
	if len(path) == 1 {
		delete(out, head)
		return out
	}
	child, ok := asConfig(out[head])
	if !ok {
		return out
	}
	out[head] = deletePath(child, path[1:])
	return out
}

// DeepMerge folds layers left to right; at any depth the rightmost layer
// wins on scalar collision, and nested Config values are merged
// recursively rather than replaced wholesale. This is associative for
// non-conflicting keys (spec §8): default_config -> scenario_config ->
// runtime extras.
func DeepMerge(layers ...Config) Config {
	out := Config{}
	for _, layer := range layers {
		out = mergeTwo(out, layer)
	}
	return out
}

func mergeTwo(base, overlay Config) Config {
	out := cloneShallow(base)
	for k, v := range overlay {
		if baseChild, baseIsMap := asConfig(out[k]); baseIsMap {
			if overlayChild, overlayIsMap := asConfig(v); overlayIsMap {
				out[k] = mergeTwo(baseChild, overlayChild)
				continue
			}
		}
		out[k] = v
	}
	return out
}
