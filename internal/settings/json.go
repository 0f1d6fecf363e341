package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonValue renders v as a plain JSON value (no type-tag wrapper), the
// representation the HTTP settings surface exposes to clients. Unlike the
// original firmware's GET path - which computed a response size in one
// pass and then streamed the body in a second, independently-computed
// pass that could disagree with the first on untested edge cases - this
// always builds the full value once and reuses it for both the
// Content-Length and the body, so the two can never diverge.
func jsonValue(v Value) ([]byte, error) {
	switch v.Type {
	case TypeString:
		return json.Marshal(v.String)
	case TypeBool:
		return json.Marshal(v.Bool)
	case TypeNumber:
		return json.Marshal(v.Number)
	case TypeNull:
		return []byte("null"), nil
	case TypeIP:
		return json.Marshal(v.IP)
	case TypeObject:
		if !json.Valid([]byte(v.Object)) {
			return nil, fmt.Errorf("settings: stored object is not valid JSON")
		}
		return []byte(v.Object), nil
	case TypeNumberVector:
		return json.Marshal(v.NumberVector)
	case Type2DVector:
		return json.Marshal(v.Vector2D)
	case TypeStringVector:
		return json.Marshal(v.StringVector)
	case TypeBoolVector:
		return json.Marshal(v.BoolVector)
	default:
		return nil, fmt.Errorf("settings: unknown value type %q", v.Type)
	}
}

// ValueFromJSON decodes a plain JSON body into a typed Value, matching it
// against t so a PUT can't silently coerce e.g. a string into a number.
func ValueFromJSON(t ValueType, body []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	switch t {
	case TypeString:
		var s string
		if err := dec.Decode(&s); err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case TypeBool:
		var b bool
		if err := dec.Decode(&b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case TypeNumber:
		var n float64
		if err := dec.Decode(&n); err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case TypeNull:
		return NullValue(), nil
	case TypeIP:
		var ip string
		if err := dec.Decode(&ip); err != nil {
			return Value{}, err
		}
		return IPValue(ip), nil
	case TypeObject:
		if !json.Valid(body) {
			return Value{}, fmt.Errorf("settings: body is not valid JSON")
		}
		return ObjectValue(string(body)), nil
	case TypeNumberVector:
		var v []float64
		if err := dec.Decode(&v); err != nil {
			return Value{}, err
		}
		return NumberVectorValue(v), nil
	case Type2DVector:
		var v [][]float64
		if err := dec.Decode(&v); err != nil {
			return Value{}, err
		}
		return Number2DVectorValue(v), nil
	case TypeStringVector:
		var v []string
		if err := dec.Decode(&v); err != nil {
			return Value{}, err
		}
		return StringVectorValue(v), nil
	case TypeBoolVector:
		var v []bool
		if err := dec.Decode(&v); err != nil {
			return Value{}, err
		}
		return BoolVectorValue(v), nil
	default:
		return Value{}, fmt.Errorf("settings: unknown value type %q", t)
	}
}

// PlainDump renders every stored key with its type suffix stripped, the
// shape the HTTP settings surface's GET returns to a client that does not
// know or care about the internal type-tag encoding.
func (s *Store) PlainDump() (map[string]json.RawMessage, error) {
	s.mu.RLock()
	snapshot := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(snapshot))
	for k, v := range snapshot {
		base := k
		if n := len(k); n >= 2 && k[n-2] == '@' {
			base = k[:n-2]
		}
		b, err := jsonValue(v)
		if err != nil {
			return nil, err
		}
		out[base] = b
	}
	return out, nil
}

// PutPlain infers a Value's type from a plain JSON scalar/array body (a
// settings PUT body has no type-tag information, unlike the on-disk
// journal) and stores it under base.
func (s *Store) PutPlain(base string, raw json.RawMessage) error {
	v, err := inferValue(raw)
	if err != nil {
		return fmt.Errorf("settings: %s: %w", base, err)
	}
	return s.Put(base, v)
}

func inferValue(raw json.RawMessage) (Value, error) {
	var probe interface{}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Value{}, err
	}
	switch t := probe.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case float64:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case []interface{}:
		return inferVectorValue(t, raw)
	case map[string]interface{}:
		return ObjectValue(string(raw)), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value type %T", t)
	}
}

func inferVectorValue(elems []interface{}, raw json.RawMessage) (Value, error) {
	if len(elems) == 0 {
		return NumberVectorValue(nil), nil
	}
	switch elems[0].(type) {
	case float64:
		var v []float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return NumberVectorValue(v), nil
		}
	case string:
		var v []string
		if err := json.Unmarshal(raw, &v); err == nil {
			return StringVectorValue(v), nil
		}
	case bool:
		var v []bool
		if err := json.Unmarshal(raw, &v); err == nil {
			return BoolVectorValue(v), nil
		}
	case []interface{}:
		var v [][]float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return Number2DVectorValue(v), nil
		}
	}
	return Value{}, fmt.Errorf("unsupported array element type")
}

// DumpJSON renders every key in the store, type tag included, as a single
// JSON object; internal/settings/export uses it. GET /settings uses
// PlainDump instead.
func (s *Store) DumpJSON() ([]byte, error) {
	s.mu.RLock()
	snapshot := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(snapshot))
	for k, v := range snapshot {
		b, err := jsonValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	return json.Marshal(out)
}
