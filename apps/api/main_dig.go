package main

import (
	"fmt"
	"log"

	"go.uber.org/dig"

	dig_container "github.com/trezcool/jamii/apps/api/di/dig"
	echoapi "github.com/trezcool/jamii/apps/api/echo"
	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
	"github.com/trezcool/jamii/storage"
)

// app is everything startWithDig needs from the container.
type app struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	Notifier record.Notifier
	Store    *storage.Store
	Server   *echoapi.Server
}

func startWithDig() {
	err := dig_container.New().Invoke(func(a app) {
		a.Logger.Info(fmt.Sprintf("Application initializing : version %q (dig)", a.Conf.Build))
		defer a.Logger.Info("Application stopped")

		defer func() {
			if err := a.Notifier.Close(); err != nil {
				a.DBLogger.Error("Failed to close notifier", err)
			}
			if err := a.Store.Close(); err != nil {
				a.DBLogger.Fatal("Failed to close store", err)
			}
		}()

		serve(a.Conf, a.Logger, a.Server)
	})
	if err != nil {
		log.Fatal(err)
	}
}
