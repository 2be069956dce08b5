package features

import (
	"encoding/json"
	"fmt"
)

// JSON form of a feature, used by the features.json sidecar and the
// per-split dataset_info.json written after a run.
type featureJSON struct {
	Type   string                 `json:"type"`
	Names  []string               `json:"names,omitempty"`
	Of     *featureJSON           `json:"of,omitempty"`
	Length *int                   `json:"length,omitempty"`
	Fields map[string]featureJSON `json:"fields,omitempty"`
}

func toJSON(f Feature) (featureJSON, error) {
	switch ft := f.(type) {
	case Value:
		return featureJSON{Type: ft.Kind.String()}, nil
	case ClassLabel:
		names := ft.Names
		if names == nil {
			names = []string{}
		}
		return featureJSON{Type: "class_label", Names: names}, nil
	case Sequence:
		of, err := toJSON(ft.Of)
		if err != nil {
			return featureJSON{}, err
		}
		n := ft.Length
		return featureJSON{Type: "sequence", Of: &of, Length: &n}, nil
	case Struct:
		fields := make(map[string]featureJSON, len(ft))
		for k, sub := range ft {
			fj, err := toJSON(sub)
			if err != nil {
				return featureJSON{}, err
			}
			fields[k] = fj
		}
		return featureJSON{Type: "struct", Fields: fields}, nil
	default:
		return featureJSON{}, fmt.Errorf("unsupported feature %s", f)
	}
}

func fromJSON(fj featureJSON) (Feature, error) {
	switch fj.Type {
	case "bool":
		return Bool(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "string":
		return Str(), nil
	case "class_label":
		return ClassLabel{Names: fj.Names}, nil
	case "sequence":
		if fj.Of == nil {
			return nil, fmt.Errorf("sequence feature missing element type")
		}
		of, err := fromJSON(*fj.Of)
		if err != nil {
			return nil, err
		}
		n := -1
		if fj.Length != nil {
			n = *fj.Length
		}
		return Sequence{Of: of, Length: n}, nil
	case "struct":
		out := make(Struct, len(fj.Fields))
		for k, sub := range fj.Fields {
			f, err := fromJSON(sub)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown feature type %q", fj.Type)
	}
}

// MarshalJSON encodes the schema as a name-to-feature object.
func (f Features) MarshalJSON() ([]byte, error) {
	out := make(map[string]featureJSON, len(f))
	for k, v := range f {
		fj, err := toJSON(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		out[k] = fj
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the name-to-feature object form.
func (f *Features) UnmarshalJSON(b []byte) error {
	var raw map[string]featureJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Features, len(raw))
	for k, fj := range raw {
		feat, err := fromJSON(fj)
		if err != nil {
			return fmt.Errorf("column %q: %w", k, err)
		}
		out[k] = feat
	}
	*f = out
	return nil
}
