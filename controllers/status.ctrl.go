package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/getHush/hushhub.go/lib/service"
)

// StatusController : Status Controller struct
type StatusController struct {
	svc *service.HushhubService
}

func NewStatusController(svc *service.HushhubService) *StatusController {
	return &StatusController{svc: svc}
}

type StatusResponse struct {
	LoopState  string               `json:"loop_state"`
	QueueDepth int                  `json:"queue_depth"`
	Accounts   int                  `json:"accounts"`
	Relays     []service.RelayState `json:"relays"`
}

// Status : pipeline diagnostics
func (controller *StatusController) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, &StatusResponse{
		LoopState:  controller.svc.LoopState().String(),
		QueueDepth: controller.svc.Queue.Depth(),
		Accounts:   controller.svc.Registry.Len(),
		Relays:     controller.svc.RelayStates(),
	})
}
