package logger

import "testing"

func TestRedactMasksCredentialKeys(t *testing.T) {
	in := []interface{}{"user", "alice", "db_password", "hunter2", "Cookie", "abc"}
	out := redact(in)

	if out[1] != "alice" {
		t.Errorf("Expected user to pass through, got %v", out[1])
	}
	if out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Errorf("Expected credentials redacted, got %v", out)
	}
	if in[3] != "hunter2" {
		t.Error("Expected input slice to be left untouched")
	}
}

func TestRedactOddLength(t *testing.T) {
	out := redact([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Errorf("Unexpected result for odd-length input: %v", out)
	}
}
