package controller

import (
	"github.com/knowtis/knowtis-collab/src/collab/controller/editor"
	"github.com/knowtis/knowtis-collab/src/collab/controller/relay"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(relay.New),
	fx.Provide(editor.New),
)
