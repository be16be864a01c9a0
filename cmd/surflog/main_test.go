package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectSessionLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"surflog"},
			want: []string{"surflog"},
		},
		{
			name: "direct session id first token",
			in:   []string{"surflog", "42"},
			want: []string{"surflog", "sessions", "show", "42"},
		},
		{
			name: "hash prefixed id",
			in:   []string{"surflog", "#42"},
			want: []string{"surflog", "sessions", "show", "#42"},
		},
		{
			name: "direct session id after value flag",
			in:   []string{"surflog", "--api", "http://localhost:5000/api", "42"},
			want: []string{"surflog", "--api", "http://localhost:5000/api", "sessions", "show", "42"},
		},
		{
			name: "numeric flag value is not an id",
			in:   []string{"surflog", "--timeout", "30", "journal"},
			want: []string{"surflog", "--timeout", "30", "journal"},
		},
		{
			name: "direct session id after equals flag",
			in:   []string{"surflog", "--format=table", "42"},
			want: []string{"surflog", "--format=table", "sessions", "show", "42"},
		},
		{
			name: "direct session id after bool flag",
			in:   []string{"surflog", "--pretty", "42"},
			want: []string{"surflog", "--pretty", "sessions", "show", "42"},
		},
		{
			name: "direct session id after double dash",
			in:   []string{"surflog", "--", "42"},
			want: []string{"surflog", "--", "sessions", "show", "42"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"surflog", "shaka", "42"},
			want: []string{"surflog", "shaka", "42"},
		},
		{
			name: "zero is not a session id",
			in:   []string{"surflog", "0"},
			want: []string{"surflog", "0"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectSessionLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
