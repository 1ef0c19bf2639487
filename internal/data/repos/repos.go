package repos

import (
	"gorm.io/gorm"

	"github.com/thecmdrunner/swiftube-backend/internal/data/repos/customers"
	"github.com/thecmdrunner/swiftube-backend/internal/data/repos/videos"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

type VideoJobRepo = videos.VideoJobRepo
type CustomerRepo = customers.CustomerRepo

var (
	ErrVideoNotFound    = videos.ErrNotFound
	ErrCustomerNotFound = customers.ErrNotFound
)

func NewVideoJobRepo(db *gorm.DB, baseLog *logger.Logger) VideoJobRepo {
	return videos.NewVideoJobRepo(db, baseLog)
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	return customers.NewCustomerRepo(db, baseLog)
}
