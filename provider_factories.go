package flowsteps

import (
	"github.com/goliatone/go-flowsteps/core"
	"github.com/goliatone/go-flowsteps/providers/figma"
)

func FigmaProvider(cfg figma.Config) (core.Provider, error) {
	return figma.New(cfg)
}
