package api

import (
	"encoding/json"
	"testing"
)

func TestParseRankedParams(t *testing.T) {
	tests := []struct {
		name       string
		params     json.RawMessage
		wantViewer int64
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{
			name:   "absent params",
			params: nil,
		},
		{
			name:   "empty object",
			params: json.RawMessage(`{}`),
		},
		{
			name:       "all parameters",
			params:     json.RawMessage(`{"viewer_id": 42, "limit": 50, "offset": 100}`),
			wantViewer: 42,
			wantLimit:  50,
			wantOffset: 100,
		},
		{
			name:      "limit only",
			params:    json.RawMessage(`{"limit": 10}`),
			wantLimit: 10,
		},
		{
			name:    "negative limit",
			params:  json.RawMessage(`{"limit": -1}`),
			wantErr: true,
		},
		{
			name:    "negative offset",
			params:  json.RawMessage(`{"offset": -5}`),
			wantErr: true,
		},
		{
			name:    "malformed json",
			params:  json.RawMessage(`{"limit":`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viewerID, limit, offset, err := parseRankedParams(tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRankedParams() failed: %v", err)
			}
			if viewerID != tt.wantViewer || limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("parseRankedParams() = (%d, %d, %d), want (%d, %d, %d)",
					viewerID, limit, offset, tt.wantViewer, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestParsePostID(t *testing.T) {
	tests := []struct {
		name    string
		params  json.RawMessage
		wantID  int64
		wantErr bool
	}{
		{
			name:   "valid",
			params: json.RawMessage(`{"post_id": 7}`),
			wantID: 7,
		},
		{
			name:    "absent params",
			params:  nil,
			wantErr: true,
		},
		{
			name:    "missing post_id",
			params:  json.RawMessage(`{}`),
			wantErr: true,
		},
		{
			name:    "wrong type",
			params:  json.RawMessage(`{"post_id": "7"}`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := parsePostID(tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePostID() failed: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("parsePostID() = %d, want %d", id, tt.wantID)
			}
		})
	}
}
