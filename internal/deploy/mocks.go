package deploy

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/ammseed/internal/chain"
)

// Mocks deploys each named mock token in order and stops at the first error.
// Mock tokens take no constructor arguments.
func (d *Deployer) Mocks(ctx context.Context, names []string) ([]chain.Deployment, error) {
	out := make([]chain.Deployment, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("deploy: stopped before %s: %w", name, err)
		}
		art, err := d.artifacts(name)
		if err != nil {
			return out, fmt.Errorf("deploy: %s: %w", name, err)
		}
		dep, err := d.deploy(ctx, art)
		if err != nil {
			return out, err
		}
		out = append(out, dep)
	}
	return out, nil
}
