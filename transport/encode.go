package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"sort"
)

// Form is a pre-built multipart-form container. Endpoints that accept file
// uploads (registration, profile update, crane and admin writes) take a
// *Form body; the transport encodes it as multipart/form-data.
type Form struct {
	fields []formField
}

type formField struct {
	key      string
	value    string
	filename string
	reader   io.Reader
}

// NewForm creates an empty multipart container.
func NewForm() *Form {
	return &Form{}
}

// Set appends a field. Nil values are skipped; slices are appended one entry
// per element under "key[]", matching the backend's array convention; other
// values are stringified.
func (f *Form) Set(key string, value any) *Form {
	if value == nil {
		return f
	}
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			f.fields = append(f.fields, formField{key: key + "[]", value: stringify(item)})
		}
	case []string:
		for _, item := range v {
			f.fields = append(f.fields, formField{key: key + "[]", value: item})
		}
	default:
		f.fields = append(f.fields, formField{key: key, value: stringify(v)})
	}
	return f
}

// AddFile appends a file part read from r.
func (f *Form) AddFile(key, filename string, r io.Reader) *Form {
	f.fields = append(f.fields, formField{key: key, filename: filename, reader: r})
	return f
}

// FormFrom builds a [Form] from a field map, skipping nils. Keys are applied
// in sorted order so the encoded payload is deterministic.
func FormFrom(fields map[string]any) *Form {
	form := NewForm()
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		form.Set(key, fields[key])
	}
	return form
}

func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, field := range f.fields {
		if field.reader != nil {
			part, err := writer.CreateFormFile(field.key, field.filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := io.Copy(part, field.reader); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := writer.WriteField(field.key, field.value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// Values builds url.Values from a field map, skipping nils. Used for the
// URL-encoded endpoints (settings updates, wallet amounts).
func Values(fields map[string]any) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if fields[key] == nil {
			continue
		}
		values.Set(key, stringify(fields[key]))
	}
	return values
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// Render integral floats without the trailing ".0" JSON decoding
		// would otherwise smuggle into form fields.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// encodeBody resolves the request body into raw bytes and a content type.
// The determination is per-request: different endpoints deliberately use
// different encodings.
func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *Form:
		return v.encode()
	case url.Values:
		return []byte(v.Encode()), "application/x-www-form-urlencoded", nil
	case string:
		return []byte(v), "application/x-www-form-urlencoded", nil
	case json.RawMessage:
		return v, "application/json", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func bodyReader(data []byte) io.Reader {
	if data == nil {
		return nil
	}
	return bytes.NewReader(data)
}
