// internal/types_test.go - Unit tests for application errors
package internal

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorWrapping(t *testing.T) {
	err := NewError(ErrorCodeNotFound, "tile file not found", os.ErrNotExist)
	wrapped := fmt.Errorf("fetch 1/2/3: %w", err)

	if !errors.Is(wrapped, os.ErrNotExist) {
		t.Error("Expected cause to be reachable through errors.Is")
	}
	if got := ErrorCodeOf(wrapped); got != ErrorCodeNotFound {
		t.Errorf("Expected %s, got %s", ErrorCodeNotFound, got)
	}
	if ErrorCodeOf(errors.New("plain")) != "" {
		t.Error("Expected empty code for plain error")
	}
	if err.Error() != "tile file not found: file does not exist" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
