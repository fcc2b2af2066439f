package handler

import (
	"net/http"

	"streammap-backend/internal/app"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

var service *app.App

func init() {
	var err error
	service, err = app.New()
	if err != nil {
		panic(err.Error())
	}
}

// Handler is the serverless entry point. All requests are rewritten here.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()
	adaptor.FiberApp(service.Fiber)(w, r)
}
