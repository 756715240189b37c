package domain

import (
	"encoding/json"
	"fmt"
)

// Entities tolerate unknown fields so that records written by a newer app
// version survive a round trip through an older one. Unknown keys are kept
// out of the typed struct in an explicit Extensions map instead of being
// merged into it.

// marshalWithExtensions renders v as a JSON object and layers the extension
// keys on top. Typed fields always win over a stale extension of the same name.
func marshalWithExtensions(v any, ext map[string]json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(ext) == 0 {
		return base, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, fmt.Errorf("reshape record: %w", err)
	}
	for k, raw := range ext {
		if _, taken := m[k]; !taken {
			m[k] = raw
		}
	}
	return json.Marshal(m)
}

// unmarshalExtensions collects the keys of data that the typed struct does not
// claim. Returns nil when there are none.
func unmarshalExtensions(data []byte, known map[string]struct{}) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	var ext map[string]json.RawMessage
	for k, raw := range m {
		if _, ok := known[k]; ok {
			continue
		}
		if ext == nil {
			ext = make(map[string]json.RawMessage)
		}
		ext[k] = raw
	}
	return ext, nil
}

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

var envelopeKeys = []string{"id", "updatedAt", "syncedAt"}
