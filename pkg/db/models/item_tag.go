package models

// ItemTag is the join record between an item and a tag
type ItemTag struct {
	ItemID uint `gorm:"primaryKey;autoIncrement:false;index"`
	TagID  uint `gorm:"primaryKey;autoIncrement:false;index"`
}

func (ItemTag) TableName() string {
	return "item_tags"
}
