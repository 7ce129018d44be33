package service

import (
	"bilan_backend/internal/model"
	"bilan_backend/internal/repository"
	"bilan_backend/internal/util"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const maxDocumentSize = 20 << 20 // 20 MiB

var allowedDocumentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".png": true, ".jpg": true, ".jpeg": true,
}

type DocumentService struct {
	docRepo *repository.DocumentRepository
	store   AssessmentStore
	storage *StorageService
}

func NewDocumentService(docRepo *repository.DocumentRepository, store AssessmentStore, storage *StorageService) *DocumentService {
	return &DocumentService{docRepo: docRepo, store: store, storage: storage}
}

// Upload stores the file and records it against the assessment. Only the
// beneficiary who owns the assessment (or an admin) may attach files.
func (s *DocumentService) Upload(ctx context.Context, claims *util.Claims, assessmentID string, header *multipart.FileHeader) (*model.Document, error) {
	assessment, err := s.store.FindByID(assessmentID)
	if err != nil {
		return nil, err
	}
	if claims.Role != model.Admin && assessment.BeneficiaryID != claims.UserID {
		return nil, util.ErrAssessmentNotFound
	}

	if header.Size > maxDocumentSize {
		return nil, fmt.Errorf("file exceeds the %d MB limit", maxDocumentSize>>20)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedDocumentExts[ext] {
		return nil, fmt.Errorf("file type %s is not allowed", ext)
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := s.storage.Store(ctx, header.Filename, io.LimitReader(f, maxDocumentSize), header.Size, contentType)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		AssessmentID: assessmentID,
		UploaderID:   claims.UserID,
		FileName:     header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		URL:          url,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(claims *util.Claims, assessmentID string) ([]model.Document, error) {
	assessment, err := s.store.FindByID(assessmentID)
	if err != nil {
		return nil, err
	}
	if !canReadAssessment(claims, assessment) {
		return nil, util.ErrAssessmentNotFound
	}
	return s.docRepo.ListByAssessment(assessmentID)
}

func canReadAssessment(claims *util.Claims, a *model.Assessment) bool {
	if claims.Role == model.Admin {
		return true
	}
	if a.BeneficiaryID == claims.UserID {
		return true
	}
	return claims.Role == model.Consultant &&
		a.ConsultantID != nil && *a.ConsultantID == claims.UserID
}
