package domain

import (
	"bytes"
	"encoding/json"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Reps is a rep count ("8") or a rep descriptor ("8-10", "AMRAP").
// Older documents store counts as numbers; they are normalized to text on decode.
type Reps string

func (r Reps) String() string {
	return string(r)
}

// UnmarshalJSON accepts both JSON numbers and strings. Anything else decodes to "".
func (r *Reps) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Reps(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*r = ""
		return nil
	}
	*r = Reps(formatNumber(n))
	return nil
}

// UnmarshalBSONValue accepts string, int32, int64 and double values.
func (r *Reps) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*r = Reps(rv.StringValue())
	case bsontype.Int32:
		*r = Reps(strconv.FormatInt(int64(rv.Int32()), 10))
	case bsontype.Int64:
		*r = Reps(strconv.FormatInt(rv.Int64(), 10))
	case bsontype.Double:
		*r = Reps(strconv.FormatFloat(rv.Double(), 'f', -1, 64))
	default:
		*r = ""
	}
	return nil
}

func formatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}

// SetList is the ordered set list of an exercise.
//
// Decoding is lenient: a value that is not a sequence decodes to a nil list,
// and elements that are not set documents are dropped. A malformed exercise
// therefore never fails the decode of its whole workout.
type SetList []ExerciseSet

// Valid reports whether the list was decoded from an actual sequence.
func (l SetList) Valid() bool {
	return l != nil
}

func (l *SetList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(SetList, 0, len(raw))
	for _, elem := range raw {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var set ExerciseSet
		if err := json.Unmarshal(elem, &set); err != nil {
			continue
		}
		out = append(out, set)
	}
	*l = out
	return nil
}

func (l *SetList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bsontype.Array {
		*l = nil
		return nil
	}
	values, err := bson.Raw(data).Values()
	if err != nil {
		*l = nil
		return nil
	}
	out := make(SetList, 0, len(values))
	for _, v := range values {
		if v.Type != bsontype.EmbeddedDocument {
			continue
		}
		var set ExerciseSet
		if err := v.Unmarshal(&set); err != nil {
			continue
		}
		out = append(out, set)
	}
	*l = out
	return nil
}
