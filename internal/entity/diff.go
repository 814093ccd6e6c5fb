package entity

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ModifiedValues returns the fields of updated that differ from original,
// always retaining "id". Both arguments are flat maps as produced by
// AsMap. An update whose result contains only "id" is a no-op and must not
// reach the network.
func ModifiedValues(original, updated map[string]any) map[string]any {
	diff := map[string]any{}

	if id, ok := updated["id"]; ok {
		diff["id"] = id
	} else if id, ok := original["id"]; ok {
		diff["id"] = id
	}

	for k, v := range updated {
		if k == "id" {
			continue
		}

		if prev, ok := original[k]; !ok || !reflect.DeepEqual(prev, v) {
			diff[k] = v
		}
	}

	return diff
}

// IsNoop reports whether a diff contains no net change beside the id.
func IsNoop(diff map[string]any) bool {
	for k := range diff {
		if k != "id" {
			return false
		}
	}

	return true
}

// AsMap flattens an entity struct into its wire representation, keyed by
// JSON tag. Round-tripping through encoding/json keeps the map aligned
// with what the backend actually receives.
func AsMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("entity: flattening %T: %w", v, err)
	}

	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("entity: flattening %T: %w", v, err)
	}

	return m, nil
}
