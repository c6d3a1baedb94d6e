package user

import "github.com/trezcool/jamii/core"

// NewServiceMock returns a Service that runs its background work (password reset mails) inline.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		spawn:   func(f func()) { f() },
	}
}
