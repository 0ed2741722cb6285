//go:build !windows

package outlook

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/maildraft/internal/mailclient"
)

func TestOpenUnsupported(t *testing.T) {
	c, err := NewOpener().Open(context.Background())
	if c != nil {
		t.Errorf("expected no client, got %v", c)
	}
	if !errors.Is(err, mailclient.ErrUnsupported) {
		t.Errorf("Open() error = %v, want ErrUnsupported", err)
	}
}
