package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "github.com/simplim/backend-go/internal/errors"
	"github.com/simplim/backend-go/internal/logger"
	"github.com/simplim/backend-go/internal/models"
	"github.com/simplim/backend-go/internal/storage"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxSimplifyChars 送入引擎的文档文本上限
const maxSimplifyChars = 8000

// PDFService PDF上传、管理与整篇简化
type PDFService struct {
	db          *gorm.DB
	objectStore storage.ObjectStorage
	simplifySvc *SimplifyService
	maxSize     int64
}

// NewPDFService 创建PDF服务
func NewPDFService(db *gorm.DB, objectStore storage.ObjectStorage, simplifySvc *SimplifyService, maxSize int64) *PDFService {
	if maxSize <= 0 {
		maxSize = 10 << 20 // 10MB
	}
	return &PDFService{
		db:          db,
		objectStore: objectStore,
		simplifySvc: simplifySvc,
		maxSize:     maxSize,
	}
}

// Upload 保存上传的PDF并登记数据库记录
func (s *PDFService) Upload(ctx context.Context, userID uint, filename string, reader io.Reader, size int64) (doc *models.PDFDocument, err error) {
	defer func() { recordPDFUpload(err) }()

	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return nil, apperrors.NewValidationError("filename is required")
	}
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return nil, apperrors.NewInvalidFileFormatError("only PDF files are accepted")
	}
	if size <= 0 {
		return nil, apperrors.NewValidationError("uploaded file is empty")
	}
	if size > s.maxSize {
		return nil, apperrors.NewFileTooLargeError(s.maxSize)
	}

	// 读入全量内容以校验PDF头，上传受maxSize约束
	content, err := io.ReadAll(io.LimitReader(reader, s.maxSize+1))
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeUploadFailed, "failed to read upload")
	}
	if int64(len(content)) > s.maxSize {
		return nil, apperrors.NewFileTooLargeError(s.maxSize)
	}
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return nil, apperrors.NewInvalidFileFormatError("file is not a valid PDF")
	}

	doc = &models.PDFDocument{
		UserID:   userID,
		Filename: filename,
		Size:     int64(len(content)),
	}
	if dbErr := s.db.WithContext(ctx).Create(doc).Error; dbErr != nil {
		return nil, apperrors.NewBackendUnavailableError("database", dbErr)
	}

	objectKey := storage.PDFObjectKey(userID, doc.DocumentID, filename)
	if upErr := s.objectStore.Upload(ctx, objectKey, bytes.NewReader(content), int64(len(content)), "application/pdf"); upErr != nil {
		// 对象写入失败时回滚登记记录
		s.db.WithContext(ctx).Delete(doc)
		logger.Error("PDF对象写入失败",
			zap.Uint("user_id", userID),
			zap.String("filename", filename),
			zap.Error(upErr))
		return nil, apperrors.NewBackendUnavailableError("object storage", upErr)
	}

	doc.FilePath = objectKey
	if dbErr := s.db.WithContext(ctx).Model(doc).Update("file_path", objectKey).Error; dbErr != nil {
		logger.Warn("⚠️ PDF路径更新失败", zap.Uint("document_id", doc.DocumentID), zap.Error(dbErr))
	}

	logger.Info("✅ PDF上传成功",
		zap.Uint("user_id", userID),
		zap.Uint("document_id", doc.DocumentID),
		zap.String("filename", filename))
	return doc, nil
}

// List 列出用户的PDF文档，最近上传优先
func (s *PDFService) List(ctx context.Context, userID uint) ([]models.PDFDocument, error) {
	var docs []models.PDFDocument
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_time DESC").
		Find(&docs).Error
	if err != nil {
		return nil, apperrors.NewBackendUnavailableError("database", err)
	}
	return docs, nil
}

// Get 按ID取用户自己的文档
func (s *PDFService) Get(ctx context.Context, userID, documentID uint) (*models.PDFDocument, error) {
	var doc models.PDFDocument
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND user_id = ?", documentID, userID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("document")
		}
		return nil, apperrors.NewBackendUnavailableError("database", err)
	}
	return &doc, nil
}

// Delete 删除文档记录和对象
func (s *PDFService) Delete(ctx context.Context, userID, documentID uint) error {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if doc.FilePath != "" {
		if delErr := s.objectStore.Delete(ctx, doc.FilePath); delErr != nil {
			logger.Warn("⚠️ PDF对象删除失败",
				zap.Uint("document_id", documentID),
				zap.Error(delErr))
		}
	}

	if dbErr := s.db.WithContext(ctx).Delete(doc).Error; dbErr != nil {
		return apperrors.NewBackendUnavailableError("database", dbErr)
	}
	return nil
}

// ExtractText 从文档提取纯文本
func (s *PDFService) ExtractText(ctx context.Context, userID, documentID uint) (string, error) {
	doc, err := s.Get(ctx, userID, documentID)
	if err != nil {
		return "", err
	}

	reader, err := s.objectStore.Download(ctx, doc.FilePath)
	if err != nil {
		return "", apperrors.NewBackendUnavailableError("object storage", err)
	}
	defer reader.Close()

	text, err := extractPDFText(reader)
	if err != nil {
		return "", apperrors.NewValidationError(fmt.Sprintf("failed to extract text: %v", err))
	}
	if strings.TrimSpace(text) == "" {
		return "", apperrors.NewValidationError("document contains no extractable text")
	}
	return text, nil
}

// SimplifyDocument 提取文档文本并走简化链路
func (s *PDFService) SimplifyDocument(ctx context.Context, userID, documentID uint) (*SimplifyResult, error) {
	text, err := s.ExtractText(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	return s.simplifySvc.SimplifyText(ctx, userID, truncateUTF8(text, maxSimplifyChars))
}

// truncateUTF8 在不超过max字节的前提下按rune边界截断
func truncateUTF8(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// extractPDFText 逐页提取PDF文本
func extractPDFText(reader io.Reader) (string, error) {
	pdfBytes, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取PDF文件失败: %w", err)
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(pdfBytes))
	if err != nil {
		return "", fmt.Errorf("解析PDF失败: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("获取PDF页数失败: %w", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
