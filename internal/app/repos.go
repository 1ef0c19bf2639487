package app

import (
	"gorm.io/gorm"

	"github.com/thecmdrunner/swiftube-backend/internal/data/repos"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

type Repos struct {
	VideoJob repos.VideoJobRepo
	Customer repos.CustomerRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		VideoJob: repos.NewVideoJobRepo(db, log),
		Customer: repos.NewCustomerRepo(db, log),
	}
}
