package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"storyforge-api/internal/application/generation"
)

func TestGenerateChaptersRequestKeySpellings(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNum   int
		wantStyle string
	}{
		{
			name:      "camelCase",
			body:      `{"numChapters":3,"writingStyle":"古风"}`,
			wantNum:   3,
			wantStyle: "古风",
		},
		{
			name:      "snake_case",
			body:      `{"num_chapters":2,"writing_style":"白话"}`,
			wantNum:   2,
			wantStyle: "白话",
		},
		{
			name:      "camelCase wins over snake_case",
			body:      `{"numChapters":4,"num_chapters":9,"writingStyle":"甲","writing_style":"乙"}`,
			wantNum:   4,
			wantStyle: "甲",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req GenerateChaptersRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			req.Normalize()
			if req.NumChapters != tt.wantNum {
				t.Errorf("NumChapters = %d, want %d", req.NumChapters, tt.wantNum)
			}
			if req.WritingStyle != tt.wantStyle {
				t.Errorf("WritingStyle = %q, want %q", req.WritingStyle, tt.wantStyle)
			}
		})
	}
}

func TestGenerateChaptersRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		num     int
		wantErr bool
	}{
		{name: "missing", num: 0, wantErr: true},
		{name: "minimum", num: 1, wantErr: false},
		{name: "maximum", num: 20, wantErr: false},
		{name: "over maximum", num: 21, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := GenerateChaptersRequest{NumChapters: tt.num}
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChapterOutcomeWireStatus(t *testing.T) {
	b, err := json.Marshal(generation.ChapterOutcome{ChapterNumber: 1, Status: generation.OutcomeSuccess})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(b), `"status":"success"`) {
		t.Errorf("outcome json = %s, want status \"success\"", b)
	}
}
