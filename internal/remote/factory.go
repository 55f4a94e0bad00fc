package remote

import (
	"fmt"

	"ta-go/internal/config"
	"ta-go/internal/ta"
)

// NewRemoteFromConfig creates a Remote implementation based on the remote config type.
func NewRemoteFromConfig(cfg config.RemoteConfig) (ta.Remote, error) {
	switch cfg.Type {
	case "drive":
		return NewDriveRemote(cfg.BaseURL), nil
	case "gist":
		return NewGistRemote(cfg.BaseURL, cfg.GistID), nil
	case "s3":
		return NewS3Remote(cfg)
	case "memory":
		return NewMemoryRemote(), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}

// BuildRemotes constructs the provider registry the sync service dispatches
// through. Each config entry registers under its own provider id.
func BuildRemotes(cfgs []config.RemoteConfig) (map[ta.Provider]ta.Remote, error) {
	remotes := make(map[ta.Provider]ta.Remote, len(cfgs))
	for _, cfg := range cfgs {
		r, err := NewRemoteFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s remote: %w", cfg.Type, err)
		}
		remotes[ta.Provider(cfg.Type)] = r
	}
	return remotes, nil
}
