package handler

import (
	controller "github.com/knowtis/knowtis-collab/src/collab/controller"
	"github.com/knowtis/knowtis-collab/src/collab/controller/editor"
	"github.com/knowtis/knowtis-collab/src/collab/handler/signaling"
	"github.com/knowtis/knowtis-collab/src/collab/repository/session"
	"go.uber.org/fx"
)

// Module provides the collaboration core and its signaling endpoint into an Fx application.
var Module = fx.Options(
	controller.Module,
	signaling.Module,
	fx.Provide(session.New),
	fx.Invoke(outputSessionInfo),
	fx.Invoke(func(session.Repository) {}),
	fx.Invoke(func(editor.Controller) {}),
)
