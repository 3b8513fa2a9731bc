package model

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// FieldState distingue un campo ausente de uno presente pero ilegible.
type FieldState uint8

const (
	FieldAbsent FieldState = iota
	FieldPresent
	FieldMalformed
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Timestamp es un instante opcional leído de un documento sin esquema.
// Decodificar nunca falla: un valor que no se puede interpretar queda como
// FieldMalformed y el resto del documento se decodifica igual.
type Timestamp struct {
	Time  time.Time
	State FieldState
}

func At(t time.Time) Timestamp {
	return Timestamp{Time: t, State: FieldPresent}
}

func (t Timestamp) Valid() bool     { return t.State == FieldPresent }
func (t Timestamp) Absent() bool    { return t.State == FieldAbsent }
func (t Timestamp) Malformed() bool { return t.State == FieldMalformed }

// Ptr devuelve nil salvo que el valor sea válido.
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid() {
		return nil
	}
	v := t.Time
	return &v
}

func (t *Timestamp) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	*t = Timestamp{}
	rv := bson.RawValue{Type: typ, Value: data}

	switch typ {
	case bson.TypeNull, bson.TypeUndefined:
		return nil
	case bson.TypeDateTime:
		if ms, ok := rv.DateTimeOK(); ok {
			*t = At(time.UnixMilli(ms).UTC())
			return nil
		}
	case bson.TypeTimestamp:
		if sec, _, ok := rv.TimestampOK(); ok {
			*t = At(time.Unix(int64(sec), 0).UTC())
			return nil
		}
	case bson.TypeEmbeddedDocument:
		// Formato exportado de Firestore: {seconds, nanoseconds}
		if doc, ok := rv.DocumentOK(); ok {
			if sec, ok := lookupWhole(doc, "seconds", "_seconds"); ok {
				nanos, _ := lookupWhole(doc, "nanoseconds", "_nanoseconds")
				*t = At(time.Unix(sec, nanos).UTC())
				return nil
			}
		}
	case bson.TypeString:
		if s, ok := rv.StringValueOK(); ok {
			if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
				*t = At(parsed.UTC())
				return nil
			}
		}
	}

	t.State = FieldMalformed
	return nil
}

func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !t.Valid() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(t.Time)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time)
}

// Ref apunta a otro documento: colección + id.
type Ref struct {
	Collection string
	ID         string
	// Raw guarda la forma original para los logs cuando no se pudo interpretar.
	Raw   string
	State FieldState
}

func NewRef(collection, id string) Ref {
	return Ref{Collection: collection, ID: id, Raw: collection + "/" + id, State: FieldPresent}
}

// ParseRef interpreta un path "coleccion/id". Para paths anidados la
// colección es todo lo anterior al último segmento.
func ParseRef(path string) Ref {
	segments := strings.Split(strings.Trim(strings.TrimSpace(path), "/"), "/")
	if len(segments) < 2 {
		return Ref{Raw: path, State: FieldMalformed}
	}
	for _, s := range segments {
		if s == "" {
			return Ref{Raw: path, State: FieldMalformed}
		}
	}
	last := len(segments) - 1
	return NewRef(strings.Join(segments[:last], "/"), segments[last])
}

func (r Ref) Valid() bool     { return r.State == FieldPresent }
func (r Ref) Absent() bool    { return r.State == FieldAbsent }
func (r Ref) Malformed() bool { return r.State == FieldMalformed }

// Path es la clave canónica "coleccion/id"; vacío si la referencia no es válida.
func (r Ref) Path() string {
	if !r.Valid() {
		return ""
	}
	return r.Collection + "/" + r.ID
}

func (r Ref) String() string {
	switch r.State {
	case FieldPresent:
		return r.Path()
	case FieldMalformed:
		return "malformed(" + r.Raw + ")"
	default:
		return "<nil>"
	}
}

func (r *Ref) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	*r = Ref{}
	rv := bson.RawValue{Type: typ, Value: data}

	switch typ {
	case bson.TypeNull, bson.TypeUndefined:
		return nil
	case bson.TypeString:
		if s, ok := rv.StringValueOK(); ok {
			*r = ParseRef(s)
			return nil
		}
	case bson.TypeEmbeddedDocument:
		if doc, ok := rv.DocumentOK(); ok {
			collection, cok := lookupString(doc, "collection", "$ref")
			id, iok := lookupID(doc, "id", "$id")
			if cok && iok && collection != "" && id != "" {
				*r = NewRef(collection, id)
				return nil
			}
			r.Raw = doc.String()
		}
	}

	if r.Raw == "" {
		r.Raw = rv.String()
	}
	r.State = FieldMalformed
	return nil
}

func (r Ref) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !r.Valid() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(r.Path())
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(r.Path())
}

func lookupWhole(doc bson.Raw, keys ...string) (int64, bool) {
	for _, k := range keys {
		rv, err := doc.LookupErr(k)
		if err != nil {
			continue
		}
		if v, ok := rv.Int64OK(); ok {
			return v, true
		}
		if v, ok := rv.Int32OK(); ok {
			return int64(v), true
		}
		if f, ok := rv.DoubleOK(); ok && f == math.Trunc(f) {
			return int64(f), true
		}
	}
	return 0, false
}

func lookupString(doc bson.Raw, keys ...string) (string, bool) {
	for _, k := range keys {
		if rv, err := doc.LookupErr(k); err == nil {
			if s, ok := rv.StringValueOK(); ok {
				return s, true
			}
		}
	}
	return "", false
}

// lookupID acepta ids string u ObjectID (en hex).
func lookupID(doc bson.Raw, keys ...string) (string, bool) {
	for _, k := range keys {
		rv, err := doc.LookupErr(k)
		if err != nil {
			continue
		}
		if s, ok := rv.StringValueOK(); ok {
			return s, true
		}
		if oid, ok := rv.ObjectIDOK(); ok {
			return oid.Hex(), true
		}
	}
	return "", false
}

// DocumentID lee el _id de un documento crudo como string.
func DocumentID(doc bson.Raw) string {
	id, _ := lookupID(doc, "_id")
	return id
}
