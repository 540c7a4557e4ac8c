package repository

import (
	"time"

	"github.com/hilthontt/encore/internal/domain"
)

// Row mappings for the relational schema owned by the main platform service.

type userModel struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	NameUser string `gorm:"column:name_user"`
	Email    string `gorm:"column:email"`
}

func (userModel) TableName() string { return "users" }

func (m *userModel) toDomain() *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{ID: m.ID, NameUser: m.NameUser, Email: m.Email}
}

type songModel struct {
	ID      int64      `gorm:"column:id;primaryKey"`
	Name    string     `gorm:"column:name"`
	OwnerID int64      `gorm:"column:owner_id"`
	Owner   *userModel `gorm:"foreignKey:OwnerID"`
}

func (songModel) TableName() string { return "songs" }

type visualizationModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	SongID    int64     `gorm:"column:song_id"`
	PlayCount int64     `gorm:"column:play_count"`
	Period    time.Time `gorm:"column:period"`
}

func (visualizationModel) TableName() string { return "visualizations" }

type commentModel struct {
	ID       int64      `gorm:"column:id;primaryKey"`
	AuthorID int64      `gorm:"column:author_id"`
	User     *userModel `gorm:"foreignKey:AuthorID"`
	Content  string     `gorm:"column:content"`
	ParentID *int64     `gorm:"column:parent_id"`
}

func (commentModel) TableName() string { return "comments" }
