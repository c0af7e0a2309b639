package model

// Field is a quiz subject area students pick from ("fields" in the client UI).
type Field struct {
	UUIDBase
	Name                   string `gorm:"size:255;not null" json:"name"`
	Description            string `gorm:"type:text" json:"description"`
	Audience               string `gorm:"column:audience;size:50;default:'general'" json:"for"`
	DefaultTimePerQuestion int    `gorm:"default:30" json:"defaultTimePerQuestion"` // seconds
}

func (Field) TableName() string {
	return "fields"
}
