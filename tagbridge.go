package tagbridge

import (
	_ "embed"

	"github.com/aretw0/tagbridge/pkg/adapters/memory"
	"github.com/aretw0/tagbridge/pkg/dispatcher"
)

// Version is the release of this module, read from the VERSION file.
//
//go:embed VERSION
var Version string

// New returns a dispatcher bound to the in-process SDK.
// Use dispatcher.New directly to plug in another ports.SDK.
func New(opts ...dispatcher.Option) *dispatcher.Dispatcher {
	return dispatcher.New(memory.NewSDK(), opts...)
}
