package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"helpnow/pkg/llm"
	"helpnow/pkg/request"
)

// LLMProvider checks that the provider has a credential and the named
// profile. It does not call the model.
func LLMProvider(p llm.Provider, profile string) Probe {
	return Probe{
		Name: "LLM Provider",
		Check: func(ctx context.Context) error {
			if err := p.HealthCheck(ctx); err != nil {
				return err
			}
			if !p.HasProfile(profile) {
				return fmt.Errorf("no model configured for profile %q", profile)
			}
			return nil
		},
	}
}

// LLMModels asks the provider to confirm its models are served. Providers
// without model validation pass.
func LLMModels(p llm.Provider) Probe {
	return Probe{
		Name: "LLM Models",
		Check: func(ctx context.Context) error {
			v, ok := p.(llm.ModelValidator)
			if !ok {
				return nil
			}
			return v.ValidateModels(ctx)
		},
	}
}

// WritableDir checks that files can be created in the directory of path.
func WritableDir(name, path string, critical bool) Probe {
	return Probe{
		Name:     name,
		Critical: critical,
		Check: func(ctx context.Context) error {
			dir := filepath.Dir(path)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.CreateTemp(dir, ".probe-*")
			if err != nil {
				return err
			}
			name := f.Name()
			f.Close()
			return os.Remove(name)
		},
	}
}

// HTTPReachable checks that a GET on url answers with a 2xx status.
func HTTPReachable(name string, rc *request.Client, url string) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) error {
			_, err := rc.Get(ctx, url, nil)
			return err
		},
	}
}
