package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{
			name: "fenced block wins over prose",
			in:   "Here are your todos:\n```json\n[{\"id\":1,\"notes\":\"call mom\"}]\n```\nAnything else?",
			want: []any{map[string]any{"id": float64(1), "notes": "call mom"}},
		},
		{
			name: "first fenced block only",
			in:   "```json\n[1]\n```\n```json\n[2]\n```",
			want: []any{float64(1)},
		},
		{
			name: "broken fenced block falls back to raw text",
			in:   "```json\n[{\"id\":1,}]\n```",
			want: "```json\n[{\"id\":1,}]\n```",
		},
		{
			name: "broken fenced block does not try the bare array",
			in:   "[1]\n```json\nnope\n```",
			want: "[1]\n```json\nnope\n```",
		},
		{
			name: "bare array",
			in:   "  [{\"id\":2}]\n",
			want: []any{map[string]any{"id": float64(2)}},
		},
		{
			name: "empty array",
			in:   "[]",
			want: []any{},
		},
		{
			name: "broken bare array",
			in:   "[not json",
			want: "[not json",
		},
		{
			name: "plain text",
			in:   "Done! I added your todo.",
			want: "Done! I added your todo.",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAnswer(tt.in))
		})
	}
}
