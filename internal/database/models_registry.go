package database

import "readit/internal/models"

// PersistentModels returns the schema-managed models in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Sub{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
	}
}
