package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	sermondm "github.com/gracechapel/church-backend/internal/core/datamodel/sermon"
	sermonpkg "github.com/gracechapel/church-backend/internal/sermon"
)

type SermonRepository struct {
	db *gorm.DB
}

func NewSermonRepository(db *gorm.DB) sermonpkg.SermonRepository {
	return &SermonRepository{
		db: db,
	}
}

// BulkUpsert inserts in one statement, skipping video ids already mirrored.
func (r *SermonRepository) BulkUpsert(sermons []sermondm.Sermon) (int64, error) {
	if len(sermons) == 0 {
		return 0, nil
	}

	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		DoNothing: true,
	}).Create(&sermons)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *SermonRepository) List(offset, limit int) ([]sermondm.Sermon, error) {
	var sermons []sermondm.Sermon
	err := r.db.Order("published_at DESC").Offset(offset).Limit(limit).Find(&sermons).Error
	return sermons, err
}

func (r *SermonRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&sermondm.Sermon{}).Count(&count).Error
	return count, err
}
