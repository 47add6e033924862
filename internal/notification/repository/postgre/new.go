package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"hrms-realtime/internal/notification/repository"
	pkgLog "hrms-realtime/pkg/log"
)

type implRepository struct {
	l     pkgLog.Logger
	db    *sqlx.DB
	clock func() time.Time
}

var _ repository.Repository = &implRepository{}

func New(l pkgLog.Logger, db *sqlx.DB) *implRepository {
	return &implRepository{
		l:     l,
		db:    db,
		clock: time.Now,
	}
}
