package types

import (
	"errors"
	"testing"
)

func TestDomainErrorWrapping(t *testing.T) {
	if err := NotFound("quote", 42); !errors.Is(err, ErrNotFound) || err.Error() != "quote 42: not found" {
		t.Errorf("Unexpected not found error: %v", err)
	}
	if err := Conflict("cycle %d has %d items", 1, 3); !errors.Is(err, ErrConflict) || err.Error() != "conflict: cycle 1 has 3 items" {
		t.Errorf("Unexpected conflict error: %v", err)
	}
	if err := Invalid("bad date %q", "x"); !errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) {
		t.Errorf("Unexpected validation error: %v", err)
	}
}

func TestCustomErrorMessage(t *testing.T) {
	e := &CustomError{Code: 403, Message: "denied", Type: "okr.authorization.approver"}
	if e.Error() != "403: denied [type: okr.authorization.approver]" {
		t.Errorf("Unexpected message: %s", e.Error())
	}
}
