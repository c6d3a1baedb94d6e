package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoapi "github.com/trezcool/jamii/apps/api/echo"
	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/dashboard"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/services/email"
	"github.com/trezcool/jamii/services/files"
	"github.com/trezcool/jamii/services/logger"
	"github.com/trezcool/jamii/services/notify"
	"github.com/trezcool/jamii/storage"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	notifier := notifysvc.New(conf, dbLogger)
	defer func() {
		if err := notifier.Close(); err != nil {
			dbLogger.Error("Failed to close notifier", err)
		}
	}()

	store, err := storage.Open(ctx, conf, notifier, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = store.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	files, err := filesvc.NewStore(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(store.Users, mailSvc, conf)
	activitySvc := activity.NewService(store.Records)
	eventSvc := event.NewService(store.Records, conf.CalendarLocation)
	resourceSvc := resource.NewService(store.Records, files, resource.NewUploadPolicy(conf))
	postSvc := post.NewService(store.Records)
	dashboardSvc := dashboard.NewService(usrSvc, activitySvc, eventSvc, resourceSvc, postSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	event.InitValidators(validate, translator)
	resource.InitValidators(validate, translator)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			UserSvc:      usrSvc,
			ActivitySvc:  activitySvc,
			EventSvc:     eventSvc,
			ResourceSvc:  resourceSvc,
			PostSvc:      postSvc,
			DashboardSvc: dashboardSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)

	serve(conf, logger, server)
}
