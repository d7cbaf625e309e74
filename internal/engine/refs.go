package engine

import (
	"fmt"
	"strings"

	"github.com/agentrig/agentrig/internal/resource"
)

// Spec values may reference the output of an earlier resource with
//
//	ref://<resource-key>/<field>
//
// where field is "id" for the external identifier or a metadata key
// (e.g. ref://demo-runtime-role/arn). References are resolved against the
// state records just before the spec is handed to an adapter, so a later
// resource's spec can embed an earlier resource's external identifier.
const refScheme = "ref://"

// ResolveRefs returns a copy of spec with every ref:// value replaced by the
// referenced record's field. An unresolvable reference is an ordering or
// configuration error.
func ResolveRefs(spec map[string]any, records map[string]*resource.Record) (map[string]any, error) {
	out, err := resolveValue(spec, records)
	if err != nil {
		return nil, err
	}
	m, _ := out.(map[string]any)
	return m, nil
}

func resolveValue(val any, records map[string]*resource.Record) (any, error) {
	switch v := val.(type) {
	case string:
		if !strings.HasPrefix(v, refScheme) {
			return v, nil
		}
		key, field := refKey(v), refField(v)
		rec, ok := records[key]
		if !ok || rec.Status != resource.StatusCreated {
			return nil, fmt.Errorf("reference %q points to a resource that is not CREATED", v)
		}
		if field == "id" || field == "" {
			return rec.ExternalID, nil
		}
		if mv, ok := rec.Metadata[field]; ok {
			return mv, nil
		}
		return nil, fmt.Errorf("reference %q names field %q, which %s did not capture", v, field, key)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			r, err := resolveValue(inner, records)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			r, err := resolveValue(inner, records)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// extractRefs collects every ref:// string inside a spec value.
func extractRefs(v any) []string {
	var refs []string
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, refScheme) {
			refs = append(refs, val)
		}
	case map[string]any:
		for _, inner := range val {
			refs = append(refs, extractRefs(inner)...)
		}
	case []any:
		for _, inner := range val {
			refs = append(refs, extractRefs(inner)...)
		}
	}
	return refs
}

// refKey extracts the resource key from ref://key/field.
func refKey(ref string) string {
	rest := strings.TrimPrefix(ref, refScheme)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// refField extracts the field name from ref://key/field.
func refField(ref string) string {
	rest := strings.TrimPrefix(ref, refScheme)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i+1:]
	}
	return ""
}
