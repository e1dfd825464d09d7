package cachestorage

import (
	"errors"
	"testing"
)

func TestResponseEnvelopeRoundTrip(t *testing.T) {
	in := NewTextResponse("File 1: xx")
	raw, err := encodeResponse(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := decodeResponse(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Status != 200 || out.ContentType() != "text/plain" || string(out.Body) != "File 1: xx" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestDecodeResponseRejectsGarbageAndVersion(t *testing.T) {
	if _, err := decodeResponse([]byte("not json")); !errors.Is(err, ErrCorruptResponse) {
		t.Fatalf("expected corrupt response, got %v", err)
	}
	if _, err := decodeResponse([]byte(`{"v":9,"s":200,"b":""}`)); !errors.Is(err, ErrCorruptResponse) {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestValidateResponseStatus(t *testing.T) {
	for _, status := range []int{0, 101, 199, 206, 600} {
		if err := validateResponse(Response{Status: status}); !errors.Is(err, ErrBadStatus) {
			t.Fatalf("status %d: expected bad status, got %v", status, err)
		}
	}
	for _, status := range []int{200, 204, 301, 404, 500} {
		if err := validateResponse(Response{Status: status}); err != nil {
			t.Fatalf("status %d: unexpected error %v", status, err)
		}
	}
}
