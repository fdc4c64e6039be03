package mysql

import (
	"context"

	"gorm.io/gorm"

	"LevelVault/internal/gamesave/domain/archive"
	"LevelVault/internal/gamesave/infra/persistence/errs"
	"LevelVault/internal/gamesave/infra/persistence/model"
)

const (
	OpReplaceIndex = "repo.index.Replace"
	OpListIndex    = "repo.index.List"
)

type IndexRepo struct {
	db *gorm.DB
}

func NewIndexRepo(db *gorm.DB) *IndexRepo {
	return &IndexRepo{db: db}
}

func (r *IndexRepo) WithTx(tx *gorm.DB) *IndexRepo {
	return &IndexRepo{db: tx}
}

// AutoMigrate 建表，启动时调用一次。
func (r *IndexRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&model.LevelIndex{})
}

// Replace 用 entries 整体覆盖索引：先删超出新长度的下标，再逐行 Save。
func (r *IndexRepo) Replace(ctx context.Context, entries []archive.IndexEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("position >= ?", len(entries)).Delete(&model.LevelIndex{}).Error; err != nil {
			return err
		}
		for _, e := range entries {
			m := model.IndexEntryToModel(e)
			if err := tx.Save(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errs.Wrap(OpReplaceIndex, errs.KindInfra, err, map[string]any{"entries": len(entries)})
	}
	return nil
}

func (r *IndexRepo) List(ctx context.Context) ([]archive.IndexEntry, error) {
	var rows []model.LevelIndex
	if err := r.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(OpListIndex, errs.KindInfra, err, nil)
	}
	out := make([]archive.IndexEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, model.IndexModelToEntry(m))
	}
	return out, nil
}
