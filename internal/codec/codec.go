// Package codec converts between types.Document and BSON, and renders
// documents as MongoDB Extended JSON. Both storage backends and the size
// comparator go through it, so every document has one canonical encoding.
package codec

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// ToBSON converts doc to an ordered BSON document. Keys are sorted with the
// identifier first so the encoding of a document does not depend on map
// iteration order.
func ToBSON(doc types.Document) bson.D {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == types.IDField {
			return true
		}
		if keys[j] == types.IDField {
			return false
		}
		return keys[i] < keys[j]
	})

	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: toBSONValue(doc[k])})
	}
	return out
}

func toBSONValue(v any) any {
	switch val := v.(type) {
	case types.Document:
		return ToBSON(val)
	case map[string]any:
		return ToBSON(types.Document(val))
	case []any:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = toBSONValue(item)
		}
		return out
	case time.Time:
		return primitive.NewDateTimeFromTime(val)
	default:
		return val
	}
}

// FromBSON normalizes a decoded BSON value into the types.Document value
// space: nested documents become types.Document and arrays []any. Datetimes
// become UTC time.Time, ObjectIDs their hex string, and int32 plain int.
func FromBSON(v any) any {
	switch val := v.(type) {
	case bson.D:
		out := make(types.Document, len(val))
		for _, e := range val {
			out[e.Key] = FromBSON(e.Value)
		}
		return out
	case bson.M:
		out := make(types.Document, len(val))
		for k, item := range val {
			out[k] = FromBSON(item)
		}
		return out
	case map[string]any:
		return FromBSON(bson.M(val))
	case types.Document:
		return FromBSON(bson.M(val))
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = FromBSON(item)
		}
		return out
	case []any:
		return FromBSON(bson.A(val))
	case primitive.DateTime:
		return val.Time().UTC()
	case time.Time:
		return val.UTC()
	case primitive.ObjectID:
		return val.Hex()
	case int32:
		return int(val)
	default:
		return val
	}
}

// DocumentFromBSON converts a decoded BSON document.
func DocumentFromBSON(d bson.D) types.Document {
	return FromBSON(d).(types.Document)
}

// MarshalExtJSON renders doc as Extended JSON. canonical selects the
// type-preserving canonical form over the relaxed one.
func MarshalExtJSON(doc types.Document, canonical bool) ([]byte, error) {
	data, err := bson.MarshalExtJSON(ToBSON(doc), canonical, false)
	if err != nil {
		return nil, fmt.Errorf("marshal extended json: %w", err)
	}
	return data, nil
}

// MarshalExtJSONIndent renders doc as indented relaxed Extended JSON for
// display.
func MarshalExtJSONIndent(doc types.Document) ([]byte, error) {
	data, err := bson.MarshalExtJSONIndent(ToBSON(doc), false, false, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal extended json: %w", err)
	}
	return data, nil
}

// UnmarshalExtJSON parses relaxed or canonical Extended JSON into a
// normalized document.
func UnmarshalExtJSON(data []byte) (types.Document, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("unmarshal extended json: %w", err)
	}
	return DocumentFromBSON(d), nil
}
