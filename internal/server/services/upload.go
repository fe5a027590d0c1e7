package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/storage"
)

// UploadService stores one file per user, named after the user.
type UploadService struct {
	storage storage.Storage
	logger  logging.Logger
}

func NewUploadService(st storage.Storage, logger logging.Logger) *UploadService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &UploadService{storage: st, logger: logger.With("module", "upload_service")}
}

// ObjectName returns "<username>.<ext>", where ext is everything after the
// last dot of filename, or all of filename when it has no dot.
func ObjectName(username, filename string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: empty username", common.ErrorValidation)
	}
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%w: invalid file name %q", common.ErrorValidation, filename)
	}

	ext := filename[strings.LastIndex(filename, ".")+1:]
	if ext == "" {
		return "", fmt.Errorf("%w: file name %q has no extension", common.ErrorValidation, filename)
	}

	return username + "." + ext, nil
}

// Upload saves r as the acting user's file and returns its location. A
// previous upload with the same extension is replaced.
func (s *UploadService) Upload(ctx context.Context, username, filename string, r io.Reader) (string, error) {
	name, err := ObjectName(username, filename)
	if err != nil {
		return "", err
	}

	loc, err := s.storage.Save(ctx, name, r)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return "", err
		}
		s.logger.Error(ctx, "upload failed", "username", username, "name", name, "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "file uploaded", "username", username, "location", loc)
	return loc, nil
}
