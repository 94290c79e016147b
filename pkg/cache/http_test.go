package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestResponseToEntry(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		wantErr bool
	}{
		{
			name: "response with validators",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Cache-Control": []string{"public, max-age=86400"},
					"Last-Modified": []string{time.Now().Add(-1 * time.Hour).Format(http.TimeFormat)},
					"Etag":          []string{`W/"abc123"`},
					"Content-Type":  []string{"application/json; charset=utf-8"},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`{"id": 25}`))),
			},
		},
		{
			name: "response without freshness headers",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"id": 1}`))),
			},
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			body, _ := io.ReadAll(tt.resp.Body)
			if !bytes.Equal(body, entry.Data) {
				t.Errorf("restored body = %q, want %q", body, entry.Data)
			}
			if entry.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %v, want %v", entry.StatusCode, tt.resp.StatusCode)
			}
			if entry.ETag != tt.resp.Header.Get("ETag") {
				t.Errorf("ETag = %v, want %v", entry.ETag, tt.resp.Header.Get("ETag"))
			}
			if entry.ContentType != tt.resp.Header.Get("Content-Type") {
				t.Errorf("ContentType = %v, want %v", entry.ContentType, tt.resp.Header.Get("Content-Type"))
			}
			if entry.Expires.IsZero() {
				t.Error("Expires was not set")
			}
		})
	}
}

func TestParseFreshness(t *testing.T) {
	now := time.Now()
	tolerance := 2 * time.Second

	tests := []struct {
		name    string
		headers http.Header
		want    time.Time
	}{
		{
			name:    "max-age",
			headers: http.Header{"Cache-Control": []string{"public, max-age=86400, s-maxage=86400"}},
			want:    now.Add(24 * time.Hour),
		},
		{
			name: "max-age wins over expires",
			headers: http.Header{
				"Cache-Control": []string{"max-age=60"},
				"Expires":       []string{now.Add(time.Hour).Format(http.TimeFormat)},
			},
			want: now.Add(time.Minute),
		},
		{
			name:    "no-store",
			headers: http.Header{"Cache-Control": []string{"no-store"}},
			want:    now,
		},
		{
			name:    "expires header",
			headers: http.Header{"Expires": []string{now.Add(time.Hour).Format(http.TimeFormat)}},
			want:    now.Add(time.Hour),
		},
		{
			name:    "expires in the past",
			headers: http.Header{"Expires": []string{now.Add(-time.Hour).Format(http.TimeFormat)}},
			want:    now,
		},
		{
			name:    "invalid expires",
			headers: http.Header{"Expires": []string{"not a date"}},
			want:    now.Add(DefaultTTL),
		},
		{
			name:    "invalid max-age falls through to default",
			headers: http.Header{"Cache-Control": []string{"max-age=soon"}},
			want:    now.Add(DefaultTTL),
		},
		{
			name:    "no headers",
			headers: http.Header{},
			want:    now.Add(DefaultTTL),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFreshness(tt.headers, now)
			if diff := got.Sub(tt.want); diff < -tolerance || diff > tolerance {
				t.Errorf("ParseFreshness() = %v, want about %v (diff %v)", got, tt.want, diff)
			}
		})
	}
}

func TestEntryToResponse(t *testing.T) {
	entry := &Entry{
		Data:        []byte(`{"name":"pikachu"}`),
		ETag:        `"v1"`,
		ContentType: "application/json",
		Expires:     time.Now().Add(time.Hour),
	}
	req, _ := http.NewRequest(http.MethodGet, "https://pokeapi.co/api/v2/pokemon/25/", nil)

	resp := EntryToResponse(entry, req)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200 for an unset status", resp.StatusCode)
	}
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Error("expected X-Cache: HIT")
	}
	if resp.Header.Get("ETag") != `"v1"` {
		t.Errorf("ETag = %q", resp.Header.Get("ETag"))
	}
	if resp.Request != req {
		t.Error("response should reference the originating request")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"name":"pikachu"}` {
		t.Errorf("body = %q", body)
	}
}

func TestShouldMakeConditionalRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		want  bool
	}{
		{name: "nil entry", entry: nil, want: false},
		{name: "etag", entry: &Entry{ETag: `"abc"`}, want: true},
		{name: "last-modified", entry: &Entry{LastModified: time.Now()}, want: true},
		{name: "no validators", entry: &Entry{Data: []byte("data")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.want {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	lastMod := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		entry      *Entry
		wantHeader string
		wantValue  string
	}{
		{
			name:       "etag",
			entry:      &Entry{ETag: `"abc123"`},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
		{
			name:       "last-modified",
			entry:      &Entry{LastModified: lastMod},
			wantHeader: "If-Modified-Since",
			wantValue:  "Sun, 01 Jan 2023 12:00:00 GMT",
		},
		{
			name:       "etag preferred",
			entry:      &Entry{ETag: `"abc123"`, LastModified: lastMod},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
			AddConditionalHeaders(req, tt.entry)

			if got := req.Header.Get(tt.wantHeader); got != tt.wantValue {
				t.Errorf("header %s = %v, want %v", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}

func TestAddConditionalHeaders_NilInputs(t *testing.T) {
	// Should not panic with nil inputs
	AddConditionalHeaders(nil, &Entry{ETag: "test"})
	AddConditionalHeaders(&http.Request{}, nil)
	AddConditionalHeaders(&http.Request{}, &Entry{ETag: "test"})
}
