package dao

import (
	"fmt"
	"unicode/utf8"

	"github.com/syntrixbase/sdastore/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
)

// Validator is implemented by records with required fields that bson alone cannot
// enforce. Decode rejects documents whose record fails validation.
type Validator interface {
	Validate() error
}

// Encode converts a record into its stored document form. Text that is not valid
// UTF-8, in field names or values, is rejected.
func Encode(v any) (bson.Raw, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrEncoding, err)
	}
	if err := checkUTF8(data); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrEncoding, err)
	}
	return data, nil
}

// Decode converts a stored document into a record of type V. Optional fields absent
// from the document are left at their zero value.
func Decode[V any](raw bson.Raw) (V, error) {
	var v V
	if err := bson.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %w", model.ErrDecoding, err)
	}
	if val, ok := any(&v).(Validator); ok {
		if err := val.Validate(); err != nil {
			return v, fmt.Errorf("%w: %w", model.ErrDecoding, err)
		}
	}
	return v, nil
}

// EncodeKey converts an identifier or any other field value into the primitive
// the engine compares in filters. The same logical value always encodes to the
// same bytes.
func EncodeKey(k any) (bson.RawValue, error) {
	t, data, err := bson.MarshalValue(k)
	if err != nil {
		return bson.RawValue{}, fmt.Errorf("%w: %w", model.ErrEncoding, err)
	}
	rv := bson.RawValue{Type: t, Value: data}
	if err := checkValueUTF8("value", rv); err != nil {
		return bson.RawValue{}, fmt.Errorf("%w: %w", model.ErrEncoding, err)
	}
	return rv, nil
}

// checkUTF8 walks doc, including nested documents and arrays. The driver writes
// Go strings byte for byte and leaves the check to the server.
func checkUTF8(doc bson.Raw) error {
	elems, err := doc.Elements()
	if err != nil {
		return err
	}
	for _, e := range elems {
		key := e.Key()
		if !utf8.ValidString(key) {
			return fmt.Errorf("field name %q is not valid UTF-8", key)
		}
		if err := checkValueUTF8(key, e.Value()); err != nil {
			return err
		}
	}
	return nil
}

func checkValueUTF8(field string, v bson.RawValue) error {
	switch v.Type {
	case bson.TypeString:
		if !utf8.ValidString(v.StringValue()) {
			return fmt.Errorf("field %q is not valid UTF-8", field)
		}
	case bson.TypeEmbeddedDocument, bson.TypeArray:
		return checkUTF8(bson.Raw(v.Value))
	}
	return nil
}
