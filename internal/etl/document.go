package etl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ── Documents ──────────────────────────────────────────────
// Raw documents keep the key order of the source file. The keyed-list
// unwrapping rule picks the *first* sequence-valued key, so a plain
// map[string]any would make classification depend on hash order.

// Object is a JSON object that remembers insertion order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

var errInvalidJSON = errors.New("invalid json document")

// DecodeDocument parses JSON into a document tree made of *Object, []any,
// string, json.Number, bool and nil. Invalid UTF-8 is replaced rather than
// rejected so a single bad byte does not lose the whole dataset.
func DecodeDocument(data []byte) (any, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ToValidUTF8(data, []byte("\uFFFD"))
	if !json.Valid(data) {
		return nil, fmt.Errorf("parse json: %w", errInvalidJSON)
	}

	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	doc, err := decodeValue(value, typ)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return doc, nil
}

func decodeValue(raw []byte, typ jsonparser.ValueType) (any, error) {
	switch typ {
	case jsonparser.Object:
		obj := NewObject()
		err := jsonparser.ObjectEach(raw, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
			k, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			v, err := decodeValue(value, vt)
			if err != nil {
				return err
			}
			obj.Set(k, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return obj, nil

	case jsonparser.Array:
		items := make([]any, 0)
		var itemErr error
		_, err := jsonparser.ArrayEach(raw, func(value []byte, vt jsonparser.ValueType, _ int, err error) {
			if itemErr != nil {
				return
			}
			if err != nil {
				itemErr = err
				return
			}
			v, err := decodeValue(value, vt)
			if err != nil {
				itemErr = err
				return
			}
			items = append(items, v)
		})
		if err != nil {
			return nil, err
		}
		if itemErr != nil {
			return nil, itemErr
		}
		return items, nil

	case jsonparser.String:
		return jsonparser.ParseString(raw)
	case jsonparser.Number:
		return json.Number(string(raw)), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(raw)
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected json value %q", raw)
	}
}

// objectView gives uniform ordered access to the object types a document
// may contain: decoded *Object values and plain maps built in code.
type objectView struct {
	keys []string
	get  func(string) (any, bool)
}

// viewObject returns an ordered view of v if it is an object. Plain maps
// have no inherent order and are iterated by sorted key.
func viewObject(v any) (objectView, bool) {
	switch o := v.(type) {
	case *Object:
		if o == nil {
			return objectView{}, false
		}
		keys := make([]string, 0, o.Len())
		for pair := o.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
		return objectView{keys: keys, get: o.Get}, true
	case map[string]any:
		if o == nil {
			return objectView{}, false
		}
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return objectView{keys: keys, get: func(k string) (any, bool) {
			val, ok := o[k]
			return val, ok
		}}, true
	default:
		return objectView{}, false
	}
}

// viewSequence returns the elements of v if it is a list. Decoded documents
// hold []any; lists built in code may be typed, such as []map[string]any or
// []*Object. Nil maps and pointers inside a typed list come back as nil.
// Byte slices are raw data, not lists.
func viewSequence(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		el := rv.Index(i)
		switch el.Kind() {
		case reflect.Map, reflect.Pointer, reflect.Interface, reflect.Slice:
			if el.IsNil() {
				continue
			}
		}
		items[i] = el.Interface()
	}
	return items, true
}

// record copies the object's top-level fields into a fresh Record so that
// later additions (lng/lat) never write back into the source document.
func (v objectView) record() Record {
	data := make(map[string]any, len(v.keys)+2)
	for _, k := range v.keys {
		val, _ := v.get(k)
		data[k] = val
	}
	return Record{Data: data}
}

// Field returns the value stored under key when doc is an object.
func Field(doc any, key string) (any, bool) {
	obj, ok := viewObject(doc)
	if !ok {
		return nil, false
	}
	return obj.get(key)
}

// Walk follows a dot-separated path of object keys into doc.
func Walk(doc any, path string) (any, error) {
	if path == "" {
		return doc, nil
	}
	current := doc
	for _, part := range strings.Split(path, ".") {
		next, ok := Field(current, part)
		if !ok {
			return nil, fmt.Errorf("invalid data path: %q not found", part)
		}
		current = next
	}
	return current, nil
}
