package videos

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

var ErrNotFound = errors.New("video job not found")

type VideoJobRepo interface {
	Create(dbc dbctx.Context, job *domain.VideoJob) error
	GetByID(dbc dbctx.Context, id string) (*domain.VideoJob, error)
	GetByIDs(dbc dbctx.Context, ids []string) ([]*domain.VideoJob, error)
	ClaimNext(dbc dbctx.Context, staleAfter time.Duration) (*domain.VideoJob, error)
	Heartbeat(dbc dbctx.Context, id string) error
	UpdateFields(dbc dbctx.Context, id string, updates map[string]interface{}) error
	UpdateFieldsIfStatus(dbc dbctx.Context, id string, allowed []domain.VideoStatus, updates map[string]interface{}) (bool, error)
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id string, disallowed []domain.VideoStatus, updates map[string]interface{}) (bool, error)
}

type videoJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoJobRepo(db *gorm.DB, baseLog *logger.Logger) VideoJobRepo {
	return &videoJobRepo{
		db:  db,
		log: baseLog.With("repo", "VideoJobRepo"),
	}
}

func (r *videoJobRepo) Create(dbc dbctx.Context, job *domain.VideoJob) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil || job.ID == "" {
		return errors.New("video job requires an id")
	}
	return transaction.WithContext(dbc.Ctx).Create(job).Error
}

func (r *videoJobRepo) GetByID(dbc dbctx.Context, id string) (*domain.VideoJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, ErrNotFound
	}
	var job domain.VideoJob
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (r *videoJobRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*domain.VideoJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.VideoJob
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNext locks the oldest IN_PROGRESS job that no worker holds, or whose
// holder stopped heartbeating before staleAfter. The lock is a conditional
// update so only one worker wins a given row, on any SQL backend.
func (r *videoJobRepo) ClaimNext(dbc dbctx.Context, staleAfter time.Duration) (*domain.VideoJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	staleCutoff := now.Add(-staleAfter)

	const claimable = "status = ? AND (locked_at IS NULL OR heartbeat_at IS NULL OR heartbeat_at < ?)"

	var candidates []*domain.VideoJob
	if err := transaction.WithContext(dbc.Ctx).
		Select("id").
		Where(claimable, string(domain.VideoStatusInProgress), staleCutoff).
		Order("updated_at ASC").
		Limit(5).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	for _, c := range candidates {
		res := transaction.WithContext(dbc.Ctx).
			Model(&domain.VideoJob{}).
			Where("id = ?", c.ID).
			Where(claimable, string(domain.VideoStatusInProgress), staleCutoff).
			Updates(map[string]interface{}{
				"locked_at":    now,
				"heartbeat_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected != 1 {
			continue
		}
		return r.GetByID(dbc, c.ID)
	}
	return nil, nil
}

func (r *videoJobRepo) Heartbeat(dbc dbctx.Context, id string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.VideoJob{}).
		Where("id = ? AND locked_at IS NOT NULL", id).
		Update("heartbeat_at", time.Now().UTC()).Error
}

func (r *videoJobRepo) UpdateFields(dbc dbctx.Context, id string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.VideoJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateFieldsIfStatus applies updates only while the row is in one of the
// allowed statuses. The bool reports whether the row was written.
func (r *videoJobRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id string, allowed []domain.VideoStatus, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" || len(allowed) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.VideoJob{}).
		Where("id = ?", id).
		Where("status IN ?", domain.StatusStrings(allowed)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *videoJobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id string, disallowed []domain.VideoStatus, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&domain.VideoJob{}).
		Where("id = ?", id)
	if len(disallowed) == 1 {
		q = q.Where("status <> ?", string(disallowed[0]))
	} else if len(disallowed) > 1 {
		q = q.Where("status NOT IN ?", domain.StatusStrings(disallowed))
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
