package stt

import "testing"

func TestParseResult(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		want   TranscriptResult
		wantOK bool
	}{
		{
			name: "final result",
			msg:  `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello world","confidence":0.98}]}}`,
			want: TranscriptResult{
				Text:       "hello world",
				Confidence: 0.98,
				IsFinal:    true,
			},
			wantOK: true,
		},
		{
			name: "interim result",
			msg:  `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel","confidence":0.5}]}}`,
			want: TranscriptResult{
				Text:       "hel",
				Confidence: 0.5,
				IsFinal:    false,
			},
			wantOK: true,
		},
		{
			name:   "empty interim skipped",
			msg:    `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"","confidence":0}]}}`,
			wantOK: false,
		},
		{
			name: "empty final passes through",
			msg:  `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"","confidence":0}]}}`,
			want: TranscriptResult{
				IsFinal: true,
			},
			wantOK: true,
		},
		{
			name:   "metadata message skipped",
			msg:    `{"type":"Metadata","request_id":"abc"}`,
			wantOK: false,
		},
		{
			name:   "no alternatives skipped",
			msg:    `{"type":"Results","is_final":false,"channel":{"alternatives":[]}}`,
			wantOK: false,
		},
		{
			name:   "invalid json skipped",
			msg:    `not json`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseResult([]byte(tt.msg))
			if ok != tt.wantOK {
				t.Fatalf("parseResult() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("parseResult() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
