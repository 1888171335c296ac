package models

import (
	"time"
)

// TextHistory 简化历史表（向量索引的读优化镜像，相似度检索仍以向量索引为准）
type TextHistory struct {
	HistoryID       uint      `gorm:"primaryKey;column:history_id" json:"history_id"`
	UserID          uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	OriginalText    string    `gorm:"type:text;not null" json:"original_text"`
	SimplifiedText  string    `gorm:"type:text;not null" json:"simplified_text"`
	ComplexityLevel int       `gorm:"column:complexity_level;not null;default:1" json:"complexity_level"`
	VectorID        string    `gorm:"column:vector_id;size:64;not null" json:"vector_id"`
	UsedFallback    bool      `gorm:"column:used_fallback;default:false" json:"used_fallback"`
	CreateTime      time.Time `gorm:"column:create_time;autoCreateTime;index" json:"create_time"`

	User User `gorm:"foreignKey:UserID"`
}

func (TextHistory) TableName() string {
	return "text_history"
}

// PDFDocument PDF文档表
type PDFDocument struct {
	DocumentID uint      `gorm:"primaryKey;column:document_id" json:"document_id"`
	UserID     uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Filename   string    `gorm:"size:255;not null" json:"filename"`
	FilePath   string    `gorm:"column:file_path;size:500;not null" json:"file_path"`
	Size       int64     `gorm:"not null" json:"size"`
	UploadTime time.Time `gorm:"column:upload_time;autoCreateTime;index" json:"upload_time"`

	User User `gorm:"foreignKey:UserID"`
}

func (PDFDocument) TableName() string {
	return "pdf_documents"
}
