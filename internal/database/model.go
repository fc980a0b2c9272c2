package database

import (
	"github.com/kynzi/marblesite/internal/adminauth"
	"github.com/kynzi/marblesite/internal/mailing"
	"github.com/kynzi/marblesite/internal/media"
	"github.com/kynzi/marblesite/internal/racing"
)

var models = []any{
	&racing.Racer{},
	&racing.Series{},
	&racing.Race{},
	&racing.Result{},
	&adminauth.Admin{},
	&mailing.Email{},
	&media.Video{},
}
