package logx

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestStage_PrefixesEveryLineWithStageName(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Stage("SEE").Println("stalled at register()")

	if !strings.HasPrefix(buf.String(), "[SEE] ") {
		t.Fatalf("expected output to be prefixed with [SEE], got %q", buf.String())
	}
}

func TestLogger_PrintfFormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Stage("CTC").Printf("iteration %d of %d", 1, 50)

	if !strings.Contains(buf.String(), "iteration 1 of 50") {
		t.Fatalf("expected formatted message in output, got %q", buf.String())
	}
}
