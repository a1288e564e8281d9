package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunOnDevnet(t *testing.T) {
	cases := map[string]struct {
		input   string
		args    []string
		wantErr bool
		want    []string
	}{
		"released": {
			input: "escrow 10 \"package delivered safely\"\npackage delivered safely\n",
			want: []string{
				"Sender:    hold1",
				"Funds released!",
				"QuickHold demo complete.",
			},
		},
		"wrong phrase": {
			input: "escrow 10 \"secret\"\nwrong\n",
			args:  []string{"-expiry", "1h"},
			want: []string{
				"Escrow created successfully!",
				"Wrong phrase, funds remain locked",
				"QuickHold demo complete.",
			},
		},
		"malformed command": {
			input:   "escrow abc \"x\"\n",
			wantErr: true,
			want:    []string{"Invalid format"},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(strings.NewReader(tc.input), &stdout, &stderr, tc.args)
			if tc.wantErr != (err != nil) {
				t.Fatalf("want error %v, got %v", tc.wantErr, err)
			}
			for _, w := range tc.want {
				if !strings.Contains(stdout.String(), w) {
					t.Fatalf("output does not contain %q:\n%s", w, stdout.String())
				}
			}
		})
	}
}

func TestRunInvalidLogLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(strings.NewReader(""), &stdout, &stderr, []string{"-log-level", "loud"})
	if err == nil {
		t.Fatal("want error")
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected output: %s", stdout.String())
	}
}
