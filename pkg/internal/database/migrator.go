package database

import (
	"github.com/luner-app/luner/pkg/internal/store"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&store.Node{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
