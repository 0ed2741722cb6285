//go:build !windows

package outlook

import (
	"context"
	"fmt"

	"github.com/nhle/maildraft/internal/mailclient"
)

// Open always fails: COM automation exists only on Windows.
func (Opener) Open(_ context.Context) (mailclient.Client, error) {
	return nil, fmt.Errorf("outlook: %w", mailclient.ErrUnsupported)
}
