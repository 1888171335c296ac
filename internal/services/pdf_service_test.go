package services

import (
	"bytes"
	"context"
	"testing"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	apperrors "github.com/simplim/backend-go/internal/errors"
	"github.com/simplim/backend-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPDFService(t *testing.T) (*PDFService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	objectStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewPDFService(db, objectStore, nil, 1<<20), mock
}

func TestPDFUploadRejectsNonPDF(t *testing.T) {
	svc, _ := newTestPDFService(t)

	_, err := svc.Upload(context.Background(), 1, "notes.txt", bytes.NewReader([]byte("hello")), 5)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeInvalidFileFormat, appErr.Code)
}

func TestPDFUploadRejectsOversized(t *testing.T) {
	svc, _ := newTestPDFService(t)

	_, err := svc.Upload(context.Background(), 1, "big.pdf", bytes.NewReader(nil), 2<<20)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeFileTooLarge, appErr.Code)
}

func TestPDFUploadRejectsEmptyFile(t *testing.T) {
	svc, _ := newTestPDFService(t)

	// 空文件是输入问题，不是超限问题
	_, err := svc.Upload(context.Background(), 1, "empty.pdf", bytes.NewReader(nil), 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	appErr := apperrors.GetAppError(err)
	assert.NotEqual(t, apperrors.ErrCodeFileTooLarge, appErr.Code)
}

func TestTruncateUTF8KeepsRuneBoundary(t *testing.T) {
	// 在多字节字符中间截断会产生非法UTF-8
	text := "ab世界"
	for max := 0; max <= len(text); max++ {
		got := truncateUTF8(text, max)
		assert.LessOrEqual(t, len(got), max)
		assert.True(t, utf8.ValidString(got), "max=%d got=%q", max, got)
	}
	assert.Equal(t, "ab世界", truncateUTF8("ab世界", 100))
	assert.Equal(t, "ab世", truncateUTF8("ab世界", 7))
	assert.Equal(t, "ab", truncateUTF8("ab世界", 4))
}

func TestPDFUploadRejectsBadMagic(t *testing.T) {
	svc, _ := newTestPDFService(t)

	// 扩展名伪装成PDF但内容不是
	content := []byte("this is plain text")
	_, err := svc.Upload(context.Background(), 1, "fake.pdf", bytes.NewReader(content), int64(len(content)))
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeInvalidFileFormat, appErr.Code)
}

func TestPDFUploadSuccess(t *testing.T) {
	svc, mock := newTestPDFService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "pdf_documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}).AddRow(5))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "pdf_documents"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	content := []byte("%PDF-1.4 tiny document")
	doc, err := svc.Upload(context.Background(), 1, "report.pdf", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	assert.Equal(t, uint(5), doc.DocumentID)
	assert.Equal(t, "report.pdf", doc.Filename)
	assert.Equal(t, int64(len(content)), doc.Size)
	assert.Equal(t, storage.PDFObjectKey(1, 5, "report.pdf"), doc.FilePath)
	assert.NoError(t, mock.ExpectationsWereMet())

	// 上传后的对象可以取回
	exists, err := svc.objectStore.Exists(context.Background(), doc.FilePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPDFGetNotFound(t *testing.T) {
	svc, mock := newTestPDFService(t)

	mock.ExpectQuery(`SELECT \* FROM "pdf_documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}))

	_, err := svc.Get(context.Background(), 1, 99)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}
