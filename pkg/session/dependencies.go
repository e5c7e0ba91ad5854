package session

import (
	"github.com/travigo/busdelay/pkg/config"
	"github.com/travigo/busdelay/pkg/prediction"
	"github.com/travigo/busdelay/pkg/punctuality"
	"github.com/travigo/busdelay/pkg/remote"
)

// NewDependencies connects sessions to the remote service described by cfg
func NewDependencies(cfg *config.Config) (Dependencies, error) {
	renderer, err := punctuality.NewRenderer(cfg.Punctuality.Rules)
	if err != nil {
		return Dependencies{}, err
	}

	client := remote.NewClient(cfg.Remote)

	return Dependencies{
		Directory: client,
		Stops:     client,
		Predictor: prediction.NewClient(client),
		Renderer:  renderer,
	}, nil
}
