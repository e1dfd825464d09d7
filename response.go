package cachestorage

import (
	"encoding/json"
	"errors"
	"fmt"
)

const responseEnvelopeVersion = 1

var (
	// ErrBadStatus is returned by Put for responses the cache refuses to store.
	ErrBadStatus = errors.New("cachestorage: response status cannot be cached")
	// ErrCorruptResponse is returned when a stored entry cannot be decoded.
	ErrCorruptResponse = errors.New("cachestorage: corrupt response entry")
)

// Response is the entity stored under a request URL: content plus status and
// header metadata.
type Response struct {
	Status int
	Header map[string]string
	Body   []byte
}

// NewTextResponse returns a 200 text/plain response carrying body.
func NewTextResponse(body string) Response {
	return Response{
		Status: 200,
		Header: map[string]string{"Content-Type": "text/plain"},
		Body:   []byte(body),
	}
}

// ContentType returns the Content-Type header, if any.
func (r Response) ContentType() string {
	return r.Header["Content-Type"]
}

type responseEnvelope struct {
	Version int               `json:"v"`
	Status  int               `json:"s"`
	Header  map[string]string `json:"h,omitempty"`
	Body    []byte            `json:"b"`
}

func validateResponse(r Response) error {
	// Partial content is never cacheable.
	if r.Status < 200 || r.Status > 599 || r.Status == 206 {
		return fmt.Errorf("%w: %d", ErrBadStatus, r.Status)
	}
	return nil
}

func encodeResponse(r Response) ([]byte, error) {
	body, err := json.Marshal(responseEnvelope{
		Version: responseEnvelopeVersion,
		Status:  r.Status,
		Header:  r.Header,
		Body:    r.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal response entry: %w", err)
	}
	return body, nil
}

func decodeResponse(raw []byte) (Response, error) {
	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrCorruptResponse, err)
	}
	if env.Version != responseEnvelopeVersion {
		return Response{}, fmt.Errorf("%w: unknown version %d", ErrCorruptResponse, env.Version)
	}
	return Response{Status: env.Status, Header: env.Header, Body: env.Body}, nil
}
