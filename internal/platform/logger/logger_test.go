package logger

import "testing"

func TestRedactorMasksSecretsAndHashesLearners(t *testing.T) {
	r := redactor{enabled: true, salt: "s"}
	in := []interface{}{"api_key", "k-123", "learner_id", "l1", "item_id", "i1", "dangling"}
	out := r.apply(in)

	if out[1] != "[REDACTED]" {
		t.Fatalf("secret not redacted: %v", out[1])
	}
	h, ok := out[3].(string)
	if !ok || len(h) != len("hash:")+12 || h == "l1" {
		t.Fatalf("learner id not hashed: %v", out[3])
	}
	if out[3] != r.apply([]interface{}{"student_id", "l1"})[1] {
		t.Fatalf("same id should hash the same across keys")
	}
	if out[5] != "i1" || out[6] != "dangling" {
		t.Fatalf("unrelated values changed: %v", out)
	}
	if in[1] != "k-123" {
		t.Fatalf("input slice mutated")
	}
}

func TestRedactorSaltChangesHash(t *testing.T) {
	a := redactor{enabled: true, salt: "a"}.hash("l1")
	b := redactor{enabled: true, salt: "b"}.hash("l1")
	if a == b {
		t.Fatalf("salt should change the hash")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	if _, err := New("development"); err == nil {
		t.Fatalf("expected error for invalid LOG_LEVEL")
	}
}
