package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/jamii/apps/api/echo"
	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/dashboard"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/record"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/services/email"
	"github.com/trezcool/jamii/services/files"
	"github.com/trezcool/jamii/services/logger"
	"github.com/trezcool/jamii/services/notify"
	"github.com/trezcool/jamii/storage"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf         *core.Config
	Logger       core.Logger
	UserSvc      user.Service
	ActivitySvc  *activity.Service
	EventSvc     *event.Service
	ResourceSvc  *resource.Service
	PostSvc      *post.Service
	DashboardSvc *dashboard.Service
	Validate     *validator.Validate
	Translator   ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newNotifier(conf *core.Config, loggerParam DBLoggerParam) record.Notifier {
	return notifysvc.New(conf, loggerParam.Logger)
}

func newStore(conf *core.Config, notifier record.Notifier, loggerParam DBLoggerParam) (*storage.Store, error) {
	return storage.Open(context.Background(), conf, notifier, loggerParam.Logger)
}

func newUserRepository(st *storage.Store) user.Repository { return st.Users }

func newRecordClient(st *storage.Store) record.Client { return st.Records }

func newFileStore(conf *core.Config) (resource.FileStore, error) {
	return filesvc.NewStore(context.Background(), conf)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	event.InitValidators(validate, translator)
	resource.InitValidators(validate, translator)
	return validate, translator
}

func newEventService(client record.Client, conf *core.Config) *event.Service {
	return event.NewService(client, conf.CalendarLocation)
}

func newResourceService(client record.Client, files resource.FileStore, conf *core.Config) *resource.Service {
	return resource.NewService(client, files, resource.NewUploadPolicy(conf))
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		UserSvc:      p.UserSvc,
		ActivitySvc:  p.ActivitySvc,
		EventSvc:     p.EventSvc,
		ResourceSvc:  p.ResourceSvc,
		PostSvc:      p.PostSvc,
		DashboardSvc: p.DashboardSvc,
		Validate:     p.Validate,
		Translator:   p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newNotifier))
	must(c.Provide(newStore))
	must(c.Provide(newUserRepository))
	must(c.Provide(newRecordClient))
	must(c.Provide(newFileStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(activity.NewService))
	must(c.Provide(newEventService))
	must(c.Provide(newResourceService))
	must(c.Provide(post.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
